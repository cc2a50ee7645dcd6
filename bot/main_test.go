package bot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ktsubaki/vrc-group-bot/store"
	"github.com/ktsubaki/vrc-group-bot/telemetry"
	"github.com/ktsubaki/vrc-group-bot/testutil"
)

func TestMain(m *testing.M) {
	telemetry.Init()
	os.Exit(m.Run())
}

// recorder captures replies and two-factor prompts for a single invocation.
type recorder struct {
	replies  []string
	prompted bool
}

func (r *recorder) Reply(msg string) { r.replies = append(r.replies, msg) }

func (r *recorder) PromptTwoFactor() error {
	r.prompted = true
	return nil
}

func (r *recorder) last() string {
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1]
}

func newTestService(t *testing.T, m *testutil.MockVRChatServer) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "usercache.json"), "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return New(Options{
		Store:     st,
		BaseURL:   m.URL,
		UserAgent: "TestBot/1.0",
		Location:  time.UTC,
	})
}
