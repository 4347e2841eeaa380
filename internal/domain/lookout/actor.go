package lookout

// Actor identifies who issued a control request.
type Actor struct {
	// Hostname is the machine the request came from.
	Hostname string
	// Username is the system user who issued it.
	Username string
}

// String renders the actor as user@host.
func (a *Actor) String() string {
	if a == nil || (a.Hostname == "" && a.Username == "") {
		return "<unknown>"
	}

	return a.Username + "@" + a.Hostname
}
