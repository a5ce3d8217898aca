package model

// ScopeType selects which stops or polygons a geometry query covers.
type ScopeType string

const (
	ScopeLine         ScopeType = "LINE"
	ScopeNeighborhood ScopeType = "NEIGHBORHOOD"
)

type Scope struct {
	Type           ScopeType
	LineID         int64
	LineCode       string
	NeighborhoodID int64
}

func LineScope(id int64, code string) Scope {
	return Scope{Type: ScopeLine, LineID: id, LineCode: code}
}

func NeighborhoodScope(id int64) Scope {
	return Scope{Type: ScopeNeighborhood, NeighborhoodID: id}
}
