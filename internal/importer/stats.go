package importer

// OutcomeKind classifies what materializing one product did.
type OutcomeKind string

const (
	OutcomeInserted OutcomeKind = "inserted"
	OutcomeUpdated  OutcomeKind = "updated"
	OutcomeExcluded OutcomeKind = "excluded"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is the per-product result of one materialization.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Name      string      `json:"name"`
	ProductID string      `json:"product_id,omitempty"`
}

// Statistics accumulates over one run. ProductIDs is the set of local
// products the run touched; reconciliation reads it to decide what is stale.
type Statistics struct {
	Imported   int      `json:"imported"`
	Inserted   []string `json:"inserted"`
	Updated    []string `json:"updated"`
	Excluded   []string `json:"excluded"`
	ProductIDs []string `json:"product_ids"`
}

func (s *Statistics) Record(o Outcome) {
	switch o.Kind {
	case OutcomeInserted:
		s.Imported++
		s.Inserted = append(s.Inserted, o.Name)
		s.ProductIDs = append(s.ProductIDs, o.ProductID)
	case OutcomeUpdated:
		s.Imported++
		s.Updated = append(s.Updated, o.Name)
		s.ProductIDs = append(s.ProductIDs, o.ProductID)
	case OutcomeExcluded:
		s.Imported++
		s.Excluded = append(s.Excluded, o.Name)
	}
}

func (s *Statistics) Merge(o Statistics) {
	s.Imported += o.Imported
	s.Inserted = append(s.Inserted, o.Inserted...)
	s.Updated = append(s.Updated, o.Updated...)
	s.Excluded = append(s.Excluded, o.Excluded...)
	s.ProductIDs = append(s.ProductIDs, o.ProductIDs...)
}
