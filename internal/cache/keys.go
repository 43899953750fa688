package cache

// DonorOpenKey holds the global list of open requests shown to donors.
const DonorOpenKey = "donor:dashboard:open"

// Key patterns used by the admin introspection view.
const (
	StudentPattern = "student:dashboard:*"
	DonorPattern   = "donor:dashboard:*"
)

// StudentKey is the per-student dashboard key. id must come from an
// authenticated principal or a stored request owner, never from client input.
func StudentKey(studentID string) string { return "student:dashboard:" + studentID }
