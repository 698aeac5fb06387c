// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/roomboard/room"
)

// Database stores the local control model. Writes are last-write-wins upserts.
type Database interface {
	LoadCenters() ([]room.Center, error)
	SaveCenters(centers []room.Center) error
	SaveScenario(centerID string, position int, scenario room.Scenario) error
	Close() error
}

// 错误定义
var ErrUnsupportedDriver = fmt.Errorf("unsupported database driver")
