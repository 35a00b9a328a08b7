package holiday

import (
	"fmt"
	"os"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"course-scheduler/internal/schedule"
)

const (
	SourceManual = "manual"
	SourceFile   = "file"
	SourceGoogle = "google"
)

// Holiday is a date on which a tenant runs no classes. An empty TenantID
// marks a global holiday shared by every tenant.
type Holiday struct {
	ID       uuid.UUID  `json:"id"`
	TenantID string     `json:"tenant_id,omitempty"`
	Date     civil.Date `json:"date"`
	Name     string     `json:"name"`
	Source   string     `json:"source"`
}

// Calendar is an immutable set of blackout dates.
type Calendar struct {
	dates schedule.DateSet
}

func NewCalendar(holidays ...[]Holiday) *Calendar {
	set := schedule.DateSet{}
	for _, list := range holidays {
		for _, h := range list {
			set[h.Date] = struct{}{}
		}
	}
	return &Calendar{dates: set}
}

// IsBlackout satisfies schedule.BlackoutFunc. A nil Calendar blocks nothing.
func (c *Calendar) IsBlackout(d civil.Date) bool {
	if c == nil {
		return false
	}
	return c.dates.Contains(d)
}

func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.dates)
}

// Dates returns the blackout dates in ascending order.
func (c *Calendar) Dates() []civil.Date {
	if c == nil {
		return nil
	}
	return c.dates.Sorted()
}

type fileEntry struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

type fileFormat struct {
	Holidays []fileEntry `yaml:"holidays"`
}

// LoadFile reads global holidays from a YAML file:
//
//	holidays:
//	  - date: "2025-01-01"
//	    name: New Year
func LoadFile(path string) ([]Holiday, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFile(data)
}

func parseFile(data []byte) ([]Holiday, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse holidays: %w", err)
	}
	out := make([]Holiday, 0, len(f.Holidays))
	for i, e := range f.Holidays {
		d, err := civil.ParseDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %d: invalid date %q: %w", i, e.Date, err)
		}
		out = append(out, Holiday{
			ID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte(SourceFile+":"+d.String())),
			Date:   d,
			Name:   e.Name,
			Source: SourceFile,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
