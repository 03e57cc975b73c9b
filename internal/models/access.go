package models

// AccessStatus is the outcome of an access decision.
type AccessStatus string

const (
	AccessGranted         AccessStatus = "GRANTED"
	AccessUnlocked        AccessStatus = "UNLOCKED"
	AccessPendingApproval AccessStatus = "PENDING_APPROVAL"
	AccessLocked          AccessStatus = "LOCKED"
)

// ForView maps a decision to the label shown in course views.
func (s AccessStatus) ForView() AccessStatus {
	if s == AccessGranted {
		return AccessUnlocked
	}
	return s
}

// AccessSnapshot is a consistent read of a user's grants and pending purchases.
type AccessSnapshot struct {
	grants  map[ContentRef]struct{}
	pending map[ContentRef]struct{}
}

// NewAccessSnapshot indexes grants and pending purchases. Rows with an
// unknown item type or a non-pending status are ignored.
func NewAccessSnapshot(grants []AccessGrant, pending []Purchase) AccessSnapshot {
	snap := AccessSnapshot{
		grants:  make(map[ContentRef]struct{}, len(grants)),
		pending: make(map[ContentRef]struct{}, len(pending)),
	}
	for _, g := range grants {
		if ref, err := g.Ref(); err == nil {
			snap.grants[ref] = struct{}{}
		}
	}
	for _, p := range pending {
		if p.Status != PurchaseStatusPending {
			continue
		}
		if ref, err := p.Ref(); err == nil {
			snap.pending[ref] = struct{}{}
		}
	}
	return snap
}

// HasGrant reports whether the snapshot holds a grant for ref.
func (s AccessSnapshot) HasGrant(ref ContentRef) bool {
	_, ok := s.grants[ref]
	return ok
}

// HasPending reports whether the snapshot holds a pending purchase for ref.
func (s AccessSnapshot) HasPending(ref ContentRef) bool {
	_, ok := s.pending[ref]
	return ok
}
