package discovery

// Viewer is the caller's identity as resolved by the HTTP layer. The zero
// value is anonymous. Anonymous viewers never trigger a bookmark lookup.
type Viewer struct {
	userID string
}

// Anonymous returns the anonymous viewer.
func Anonymous() Viewer {
	return Viewer{}
}

// User returns a viewer for an already verified user id. An empty id yields
// the anonymous viewer.
func User(id string) Viewer {
	return Viewer{userID: id}
}

// UserID returns the user id and whether the viewer is authenticated.
func (v Viewer) UserID() (string, bool) {
	return v.userID, v.userID != ""
}
