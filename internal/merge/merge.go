// Package merge implements the last-write-wins conflict decision applied
// when remote changes arrive.
package merge

// ShouldApplyRemote reports whether a remote record version replaces the
// local one. Later updated_at wins; on an exact timestamp tie the greater
// device ID wins. The rule is deterministic and symmetric across devices
// and needs no coordination; a true concurrent conflict discards one
// side's edit.
//
// The local dirty flag never participates: a losing remote change leaves a
// pending local edit (and its dirty flag) untouched, to be pushed on the
// next cycle.
func ShouldApplyRemote(localAt int64, localBy string, remoteAt int64, remoteBy string) bool {
	if remoteAt > localAt {
		return true
	}
	if remoteAt < localAt {
		return false
	}
	return remoteBy > localBy
}
