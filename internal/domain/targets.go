package domain

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// TargetIDs decodes the submission's explicit target UID list. The column is
// stored as a JSON array to keep the wire shape of "targetUserIds" intact.
// A missing or malformed column decodes to an empty list.
func (s *Submission) TargetIDs() []string {
	if len(s.TargetUserIDs) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(s.TargetUserIDs, &ids); err != nil {
		return nil
	}
	return ids
}

// SetTargetIDs encodes ids into the targetUserIds JSON column. Order is
// preserved; deduplication is the caller's concern.
func (s *Submission) SetTargetIDs(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	raw, _ := json.Marshal(ids)
	s.TargetUserIDs = datatypes.JSON(raw)
}
