package promotion

// SetGenerators replaces the id and code generators used by Create.
func (a *Admin) SetGenerators(newID, newCode func() string) {
	a.newID = newID
	a.newCode = newCode
}
