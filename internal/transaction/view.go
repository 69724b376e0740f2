package transaction

// decorate fills the derived fields of v for the viewing user. An empty
// viewer gets the tab only.
func decorate(v *View, viewerID string) {
	v.Tab = MapDBStatusToTab(string(v.Status))
	if viewerID == "" {
		v.Actions = []Action{}
		return
	}
	v.Role = v.RoleOf(viewerID)
	v.Actions = ActionsFor(v.Role, &v.Transaction)
	if v.Actions == nil {
		v.Actions = []Action{}
	}
}

// FilterVisible drops cancelled transactions from the seller's list; only
// the buyer keeps seeing them.
func FilterVisible(viewerID string, views []View) []View {
	visible := make([]View, 0, len(views))
	for _, v := range views {
		if MapDBStatusToTab(string(v.Status)) == TabCancelled && v.SellerID == viewerID {
			continue
		}
		visible = append(visible, v)
	}
	return visible
}
