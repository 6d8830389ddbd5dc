package combat

// DiceRoll captures the outcome of a single dice roll, including every die
// that hit the table and the subset that actually counted after
// advantage/disadvantage resolution.
type DiceRoll struct {
	DieType     int   `json:"die_type"` // number of faces
	Count       int   `json:"count"`
	Modifier    int   `json:"modifier"`
	Results     []int `json:"results"`      // all raw rolls
	KeptResults []int `json:"kept_results"` // rolls that counted toward the total
	Total       int   `json:"total"`

	Advantage    bool `json:"advantage,omitempty"`
	Disadvantage bool `json:"disadvantage,omitempty"`

	// Critical is set when the natural d20 result is a 20.
	Critical bool `json:"critical,omitempty"`

	// NaturalRoll is the kept d20 result before modifiers. It drives
	// crit/fumble decisions and is distinct from Total.
	NaturalRoll int `json:"natural_roll,omitempty"`
}

// IsNatural20 reports whether the kept d20 came up 20.
func (r *DiceRoll) IsNatural20() bool {
	return r.NaturalRoll == 20
}

// IsNatural1 reports whether the kept d20 came up 1.
func (r *DiceRoll) IsNatural1() bool {
	return r.NaturalRoll == 1
}
