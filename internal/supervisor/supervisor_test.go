package supervisor

import (
	"testing"
	"time"

	"modelstation/internal/model"
)

func TestStartCapturesLogsAndLoopbackURL(t *testing.T) {
	s := New(nil, nil)
	app := model.AppConfig{ID: "sdwebui", Port: 7860, Command: "echo 'Running on local URL: http://127.0.0.1:7860'; sleep 5"}

	res, err := s.Start(app, false)
	if err != nil {
		t.Fatal(err)
	}
	if res != Started {
		t.Fatalf("expected Started, got %s", res)
	}
	defer s.Stop(app.ID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := s.Status()["sdwebui"]
		if snap.LaunchURL != "" {
			if snap.LaunchURL != "http://127.0.0.1:7860" {
				t.Fatalf("unexpected launch url: %s", snap.LaunchURL)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("timed out waiting for launch URL discovery")
}

func TestStartTwiceReportsAlreadyRunning(t *testing.T) {
	s := New(nil, nil)
	app := model.AppConfig{ID: "kohya", Port: 9999, Command: "sleep 5"}
	if _, err := s.Start(app, false); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(app.ID)

	res, err := s.Start(app, false)
	if err != nil {
		t.Fatal(err)
	}
	if res != AlreadyRunning {
		t.Fatalf("expected AlreadyRunning, got %s", res)
	}
}

func TestStopOnNotRunningApp(t *testing.T) {
	s := New(nil, nil)
	if res := s.Stop("never-started"); res != NotRunning {
		t.Fatalf("expected NotRunning, got %s", res)
	}
}

func TestLogRingBounded(t *testing.T) {
	r := newRing()
	for i := 0; i < ringCapacity+50; i++ {
		r.push("line")
	}
	if r.size != ringCapacity {
		t.Fatalf("expected ring bounded at %d, got %d", ringCapacity, r.size)
	}
	if got := len(r.tail(100)); got != 100 {
		t.Fatalf("expected tail(100) to return 100 lines, got %d", got)
	}
}
