package config

//go:generate go tool go-enum --names --marshal --mustparse

// Format of measure command output.
// ENUM(text, yaml)
type ReportFormat int

// Ext returns file extension for reports of this format.
func (f ReportFormat) Ext() string {
	switch f {
	case ReportFormatYaml:
		return ".yaml"
	default:
		return ".txt"
	}
}
