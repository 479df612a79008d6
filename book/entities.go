package book

// htmlEntities are named character references XHTML content documents keep
// using even though they are not declared for XML.
var htmlEntities = map[string]string{
	"nbsp":   "\u00a0",
	"shy":    "\u00ad",
	"ensp":   "\u2002",
	"emsp":   "\u2003",
	"thinsp": "\u2009",
	"zwnj":   "\u200c",
	"zwj":    "\u200d",
	"ndash":  "\u2013",
	"mdash":  "\u2014",
	"lsquo":  "\u2018",
	"rsquo":  "\u2019",
	"sbquo":  "\u201a",
	"ldquo":  "\u201c",
	"rdquo":  "\u201d",
	"bdquo":  "\u201e",
	"laquo":  "\u00ab",
	"raquo":  "\u00bb",
	"hellip": "\u2026",
	"copy":   "\u00a9",
	"reg":    "\u00ae",
	"trade":  "\u2122",
	"deg":    "\u00b0",
	"middot": "\u00b7",
	"bull":   "\u2022",
	"times":  "\u00d7",
	"sect":   "\u00a7",
	"para":   "\u00b6",
}
