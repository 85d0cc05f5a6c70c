package syncer

import (
	"fmt"
	"strings"

	"github.com/balkashynov/opsportal/internal/models"
)

// Kind names a document collection that can be synced
type Kind string

const (
	KindLocations Kind = models.CollectionLocations
	KindTasks     Kind = models.CollectionTasks
	KindMoments   Kind = models.CollectionMoments
	KindSessions  Kind = models.CollectionSessions
	KindMedia     Kind = models.CollectionMedia
	KindVideos    Kind = models.CollectionVideos
)

// kindSpec binds a collection to its table, its label in error messages,
// and the mapper producing the row
type kindSpec struct {
	table  string
	label  string
	mapper mapper
}

var kinds = map[Kind]kindSpec{
	KindLocations: {table: models.TableLocations, label: "Location", mapper: mapLocation},
	KindTasks:     {table: models.TableJobs, label: "Job", mapper: mapJob},
	KindMoments:   {table: models.TableTasks, label: "Task", mapper: mapMoment},
	KindSessions:  {table: models.TableShifts, label: "Session", mapper: mapShift},
	KindMedia:     {table: models.TableMedia, label: "Media", mapper: mapMedia},
	KindVideos:    {table: models.TableRobotIntelligence, label: "Video", mapper: mapVideo},
}

// Order is the dependency order used by SyncEverything: rows that others
// look up come first. Videos are synced on their own by SyncVideos.
var Order = []Kind{KindLocations, KindTasks, KindSessions, KindMoments, KindMedia}

// ParseKind validates a collection name
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
	return k, nil
}

// Table returns the relational table kind lands in
func (k Kind) Table() string {
	return kinds[k].table
}

// Label returns the name used for kind in messages
func (k Kind) Label() string {
	return kinds[k].label
}

func (k Kind) String() string {
	return string(k)
}
