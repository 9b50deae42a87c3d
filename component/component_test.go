package component

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// journal records lifecycle calls across components.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.calls = append(j.calls, s)
	j.mu.Unlock()
}

type fake struct {
	name     string
	log      *journal
	startErr error
	stopErr  error
	status   HealthStatus
	hang     chan struct{}
	deadline bool
}

func (f *fake) Name() string { return f.name }

func (f *fake) Start(context.Context) error {
	if f.log != nil {
		f.log.add("start " + f.name)
	}
	return f.startErr
}

func (f *fake) Stop(ctx context.Context) error {
	_, f.deadline = ctx.Deadline()
	if f.log != nil {
		f.log.add("stop " + f.name)
	}
	return f.stopErr
}

func (f *fake) Health(context.Context) Health {
	if f.hang != nil {
		<-f.hang
	}
	return Health{Status: f.status, Message: f.name + " ok"}
}

func gateway(log *journal) (*Registry, []*fake) {
	r := NewRegistry()
	parts := []*fake{
		{name: "database", log: log, status: StatusHealthy},
		{name: "redis", log: log, status: StatusDegraded},
		{name: "kafka", log: log, status: StatusHealthy},
		{name: "http-server", log: log, status: StatusHealthy},
	}
	for _, p := range parts {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r, parts
}

func TestRegistry_Lifecycle(t *testing.T) {
	log := &journal{}
	r, parts := gateway(log)
	ctx := context.Background()

	if err := r.StartAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.StartAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.StopAll(ctx); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"start database", "start redis", "start kafka", "start http-server",
		"stop http-server", "stop kafka", "stop redis", "stop database",
	}
	if !slices.Equal(log.calls, want) {
		t.Errorf("calls = %v\nwant   %v", log.calls, want)
	}
	if !parts[0].deadline {
		t.Error("stop context must carry a deadline")
	}

	log.calls = nil
	if err := r.StopAll(ctx); err != nil || len(log.calls) != 0 {
		t.Errorf("second StopAll stopped %v (%v)", log.calls, err)
	}
}

func TestRegistry_StartFailureLeavesStartedRunning(t *testing.T) {
	log := &journal{}
	r, parts := gateway(log)
	parts[2].startErr = errors.New("no brokers")

	err := r.StartAll(context.Background())
	if err == nil || err.Error() != "start kafka: no brokers" {
		t.Fatalf("StartAll() = %v", err)
	}
	log.calls = nil
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if want := []string{"stop redis", "stop database"}; !slices.Equal(log.calls, want) {
		t.Errorf("stopped %v, want %v", log.calls, want)
	}
}

func TestRegistry_StopJoinsFailures(t *testing.T) {
	r, parts := gateway(nil)
	parts[0].stopErr = errors.New("close pool")
	parts[3].stopErr = errors.New("listener busy")
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, parts[0].stopErr) || !errors.Is(err, parts[3].stopErr) {
		t.Fatalf("StopAll() = %v", err)
	}
	if !strings.Contains(err.Error(), "stop http-server: listener busy") {
		t.Errorf("unexpected message %q", err)
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r, parts := gateway(nil)
	if err := r.Register(&fake{name: "redis"}); err == nil {
		t.Error("duplicate names must be rejected")
	}
	if r.Get("kafka") != parts[2] || r.Get("whisper") != nil {
		t.Error("Get must find registered components only")
	}
	var names []string
	for _, c := range r.All() {
		names = append(names, c.Name())
	}
	if !slices.Equal(names, []string{"database", "redis", "kafka", "http-server"}) {
		t.Errorf("All() = %v", names)
	}
}

func TestRegistry_HealthAll(t *testing.T) {
	r, parts := gateway(nil)
	parts[3].hang = make(chan struct{})
	defer close(parts[3].hang)
	r.SetTimeouts(0, 30*time.Millisecond)

	began := time.Now()
	reports := r.HealthAll(context.Background())
	if elapsed := time.Since(began); elapsed > time.Second {
		t.Fatalf("a stuck check held HealthAll for %s", elapsed)
	}

	want := []Health{
		{Name: "database", Status: StatusHealthy, Message: "database ok"},
		{Name: "redis", Status: StatusDegraded, Message: "redis ok"},
		{Name: "kafka", Status: StatusHealthy, Message: "kafka ok"},
		{Name: "http-server", Status: StatusUnhealthy, Message: "health check timed out"},
	}
	if !slices.Equal(reports, want) {
		t.Errorf("reports = %+v", reports)
	}
	if Overall(reports) != StatusUnhealthy {
		t.Errorf("Overall() = %s", Overall(reports))
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		reports []Health
		want    HealthStatus
	}{
		{"nothing registered", nil, StatusHealthy},
		{"all healthy", []Health{{Status: StatusHealthy}, {Status: StatusHealthy}}, StatusHealthy},
		{"cache degraded", []Health{{Status: StatusHealthy}, {Status: StatusDegraded}}, StatusDegraded},
		{"unhealthy wins", []Health{{Status: StatusDegraded}, {Status: StatusUnhealthy}}, StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overall(tc.reports); got != tc.want {
				t.Errorf("Overall() = %s, want %s", got, tc.want)
			}
		})
	}
}
