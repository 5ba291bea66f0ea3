// Package demo is the badge-swipe demo provider.
//
// The snapshot holds three employees, each linking to their swipes. Swipes
// are never materialized: they are served per day through the "swipe"
// lazy-load scope, which requires a date condition. The "employee" scope
// returns an employee's favorites given its id through the id-type set, and
// "simple" returns a fixed object.
//
// Generated data is deterministic: the same date always yields the same
// swipe ids and times.
package demo

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/model"
	"github.com/roach88/sap/internal/provider"
)

const (
	// Name is the provider name reported by Info.
	Name = "Demo SAP Provider"

	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// swipeNamespace scopes the name-based UUIDs used for swipe ids.
var swipeNamespace = uuid.MustParse("5f0c2f4e-8a43-4c57-9a7e-5b0d7c1f9a11")

// Employee is a demo staff record.
type Employee struct {
	ID             string
	Name           string
	Department     string
	FavoriteColor  string
	FavoriteNumber int
	FavoriteShape  string
}

// Employees is the demo staff.
var Employees = []Employee{
	{"emp_001", "Alice Johnson", "Engineering", "blue", 42, "circle"},
	{"emp_002", "Bob Smith", "Engineering", "green", 7, "triangle"},
	{"emp_003", "Carol Davis", "Design", "purple", 13, "hexagon"},
	{"emp_004", "David Wilson", "Marketing", "red", 99, "square"},
	{"emp_005", "Eva Brown", "Sales", "yellow", 3, "diamond"},
	{"emp_006", "Frank Miller", "HR", "orange", 21, "oval"},
	{"emp_007", "Grace Lee", "Finance", "pink", 8, "star"},
	{"emp_008", "Henry Taylor", "Operations", "teal", 55, "rectangle"},
	{"emp_009", "Ivy Chen", "Engineering", "indigo", 14, "pentagon"},
	{"emp_010", "Jack Anderson", "Design", "coral", 1, "heart"},
}

// snapshotDates are the "date" property of the snapshot employees.
var snapshotDates = []string{"2025-06-06", "2025-06-05", "2025-06-04"}

// Scopes returns the demo's lazy-load declarations.
func Scopes() []lazyload.Scope {
	return []lazyload.Scope{
		{
			Type:            "swipe",
			Fields:          lazyload.Fields("employee_id", "employee_name", "department", "date", "time", "entrance_or_exit", "timestamp"),
			FilteringFields: []string{"date"},
		},
		{
			Type:         "employee",
			Fields:       lazyload.Fields("favorite_color", "favorite_number", "favorite_shape", "entrances"),
			NeedsIDTypes: true,
		},
		{
			Type:   "simple",
			Fields: lazyload.Fields("one", "two", "three"),
		},
	}
}

// Provider is the demo provider. The zero value is not usable; use New.
type Provider struct {
	now func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithNow substitutes the clock used for hired_at.
func WithNow(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New creates the demo provider.
func New(opts ...Option) *Provider {
	p := &Provider{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.Info {
	return provider.Info{
		Name:        Name,
		Description: "Example provider built with SAP",
		Version:     provider.DefaultVersion,
		Scopes:      Scopes(),
	}
}

// Fetch implements provider.Provider: the first three employees, hired
// now, each with a link to their swipes.
func (p *Provider) Fetch(context.Context) ([]model.Object, error) {
	hired, err := model.MakeTimestamp(p.now())
	if err != nil {
		return nil, err
	}

	out := make([]model.Object, 0, len(snapshotDates))
	for i, date := range snapshotDates {
		emp := Employees[i]
		swipes, err := model.MakeLink(fmt.Sprintf("swipe[.employee_id == '%s']", emp.ID), "Swipes")
		if err != nil {
			return nil, err
		}
		obj, err := model.MakeObject(emp.ID, []string{"person", "employee"}, "hr_system", map[string]model.Value{
			"name":       model.String(emp.Name),
			"department": model.String(emp.Department),
			"hired_at":   hired,
			"swipes":     swipes,
			"date":       model.String(date),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// Query implements provider.Provider.
func (p *Provider) Query() lazyload.QueryFunc {
	return p.query
}

func (p *Provider) query(_ context.Context, scope lazyload.Scope, conds []lazyload.Condition, _ bool, ids lazyload.IDTypeSet) ([]model.Object, string, error) {
	switch scope.Type {
	case "swipe":
		return querySwipes(conds)
	case "employee":
		return queryEmployee(conds, ids)
	case "simple":
		obj, err := model.MakeObject("simple_001", []string{"simple"}, "simple_provider", map[string]model.Value{
			"one":   model.String("one"),
			"two":   model.String("two"),
			"three": model.String("three"),
		})
		if err != nil {
			return nil, "", err
		}
		return []model.Object{obj}, "", nil
	default:
		return nil, "", lazyload.Decline("lazy loading not supported for type: %s", scope.Type)
	}
}

func querySwipes(conds []lazyload.Condition) ([]model.Object, string, error) {
	var date *lazyload.Condition
	for i := range conds {
		if conds[i].Field == "date" {
			date = &conds[i]
			break
		}
	}
	if date == nil {
		return nil, "", lazyload.Decline("swipe queries must include a 'date' condition")
	}
	if date.Operator != lazyload.OpEquals {
		return nil, "", lazyload.Decline("only '==' operator is supported for date filtering")
	}
	day, err := time.Parse(dateLayout, date.Value)
	if err != nil {
		return nil, "", lazyload.Decline("invalid date format: '%s'. Expected format: YYYY-MM-DD", date.Value)
	}

	swipes, err := SwipesForDate(day)
	if err != nil {
		return nil, "", err
	}
	return swipes, "", nil
}

// queryEmployee serves one employee named through the id-type set. An
// __id__ == condition is accepted as an alternative way to name it.
func queryEmployee(conds []lazyload.Condition, ids lazyload.IDTypeSet) ([]model.Object, string, error) {
	wanted := ids.IDsOfType("employee")
	for _, c := range conds {
		if c.Field == lazyload.IDField && c.Operator == lazyload.OpEquals {
			wanted = append(wanted, c.Value)
		}
	}

	switch len(wanted) {
	case 0:
		return []model.Object{}, "", nil
	case 1:
	default:
		return nil, "", lazyload.Decline("you can only get one employee at a time, got %d", len(wanted))
	}

	emp, ok := findEmployee(wanted[0])
	if !ok {
		return nil, "", lazyload.Decline("employee with id '%s' not found", wanted[0])
	}
	obj, err := EmployeeWithFavorites(emp)
	if err != nil {
		return nil, "", err
	}
	return []model.Object{obj}, "", nil
}

func findEmployee(id string) (Employee, bool) {
	for _, e := range Employees {
		if e.ID == id {
			return e, true
		}
	}
	return Employee{}, false
}

// EmployeeWithFavorites builds the lazy-loaded employee record.
func EmployeeWithFavorites(emp Employee) (model.Object, error) {
	entrances, err := model.MakeLink(
		fmt.Sprintf("swipe[.employee_id == '%s'][.entrance_or_exit == 'entrance']", emp.ID),
		"Entrance swipes",
	)
	if err != nil {
		return model.Object{}, err
	}
	return model.MakeObject(emp.ID, []string{"person", "employee"}, "hr_system_extra", map[string]model.Value{
		"favorite_color":  model.String(emp.FavoriteColor),
		"favorite_number": model.Int(emp.FavoriteNumber),
		"favorite_shape":  model.String(emp.FavoriteShape),
		"entrances":       entrances,
	})
}

// SwipesForDate generates one entrance and one exit swipe per employee for
// a weekday, and nothing for weekends. Times are UTC: entrance between
// 07:00 and 09:59, exit between 16:00 and 19:59.
func SwipesForDate(day time.Time) ([]model.Object, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return []model.Object{}, nil
	}

	date := day.Format(dateLayout)
	tomorrow := day.AddDate(0, 0, 1).Format(dateLayout)

	out := make([]model.Object, 0, 2*len(Employees))
	for _, emp := range Employees {
		rng := rand.New(rand.NewPCG(seed(emp.ID, date), 0))

		entrance := day.Add(time.Duration(7+rng.IntN(3))*time.Hour + time.Duration(rng.IntN(60))*time.Minute)
		exit := day.Add(time.Duration(16+rng.IntN(4))*time.Hour + time.Duration(rng.IntN(60))*time.Minute)

		for _, kind := range []struct {
			name string
			at   time.Time
			link string
			text string
		}{
			{"entrance", entrance, "next_entrance", "Next entrance"},
			{"exit", exit, "next_exit", "Next exit"},
		} {
			obj, err := swipe(emp, date, tomorrow, kind.name, kind.at, kind.link, kind.text)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
	}
	return out, nil
}

func swipe(emp Employee, date, tomorrow, kind string, at time.Time, linkKey, linkLabel string) (model.Object, error) {
	ts, err := model.MakeTimestamp(at)
	if err != nil {
		return model.Object{}, err
	}
	next, err := model.MakeLink(
		fmt.Sprintf("swipe[.employee_id == '%s'][.entrance_or_exit == '%s'][.date == '%s']", emp.ID, kind, tomorrow),
		linkLabel,
	)
	if err != nil {
		return model.Object{}, err
	}
	return model.MakeObject(SwipeID(emp.ID, date, kind), []string{"swipe"}, "badge_system", map[string]model.Value{
		"employee_id":      model.String(emp.ID),
		"employee_name":    model.String(emp.Name),
		"department":       model.String(emp.Department),
		"date":             model.String(date),
		"time":             model.String(at.Format(timeLayout)),
		"entrance_or_exit": model.String(kind),
		"timestamp":        ts,
		linkKey:            next,
	})
}

// SwipeID derives a stable swipe id: "swipe_" plus the first eight hex
// digits of a name-based UUID over employee, date and kind.
func SwipeID(employeeID, date, kind string) string {
	u := uuid.NewSHA1(swipeNamespace, []byte(employeeID+"/"+date+"/"+kind))
	return "swipe_" + u.String()[:8]
}

func seed(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
