package paginate

// OpenPage is a single column page visible in the current spread.
type OpenPage struct {
	Index     int
	Count     int
	UnitRef   string
	UnitIndex int
}

// PagesInfo is read-only projection of what is currently shown.
type PagesInfo struct {
	UnitCount   int
	FixedLayout bool
	OpenPages   []OpenPage
}

func project(s State, unit *ContentUnit, work Work) PagesInfo {
	var info PagesInfo
	if work != nil {
		info.UnitCount, info.FixedLayout = work.Len(), work.FixedLayout()
	}
	if unit == nil {
		return info
	}
	first := s.CurrentSpread * s.VisibleColumnCount
	for i := 0; i < s.VisibleColumnCount && first+i < s.ColumnCount; i++ {
		info.OpenPages = append(info.OpenPages, OpenPage{
			Index:     first + i,
			Count:     s.ColumnCount,
			UnitRef:   unit.Ref,
			UnitIndex: unit.Index,
		})
	}
	return info
}
