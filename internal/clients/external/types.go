package external

// MonsterRef is a reference to a monster in the D&D 5e API, enough to
// present a pick list or validate an AddMonster request.
type MonsterRef struct {
	Key  string
	Name string
}

// DamageTypeRef is a reference to a damage type in the D&D 5e API.
type DamageTypeRef struct {
	Key  string
	Name string
}
