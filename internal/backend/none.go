package backend

// None runs recipe commands on the machine running make.
type None struct{}

func (None) Name() string   { return NameNone }
func (None) Prefix() string { return "" }
