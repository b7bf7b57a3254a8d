package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrCancelled = errors.New("subject dialog cancelled")

type Subject struct {
	ID         int
	Experiment string
}

// ParseSubjectID accepts non-negative decimal integers only.
func ParseSubjectID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("subject ID is empty")
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 || strings.ContainsAny(s, "+-") {
		return 0, fmt.Errorf("subject ID %q must be a non-negative integer", s)
	}
	return id, nil
}

// OutputPath names the session files: <dataDir>/<id>_<year>-<month>-<day>.
func OutputPath(dataDir string, subject Subject, date time.Time) string {
	name := fmt.Sprintf("%d_%d-%d-%d", subject.ID, date.Year(), int(date.Month()), date.Day())
	return filepath.Join(dataDir, name)
}

func NewSessionID() string {
	return uuid.NewString()
}
