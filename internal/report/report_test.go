package report

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragingest/internal/domain"
)

func TestConsole_ProvisionAndWrite(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Connected("http://localhost:6333")
	c.Embedded("hashing", 3)
	c.Provisioned("test", domain.ProvisionResult{Created: true, Duration: 1500 * time.Microsecond})
	c.StageStarted(domain.StageWrite)
	c.Written("test", domain.WriteResult{Outcome: domain.OutcomeWritten, Status: domain.StatusCompleted, Points: 3, Duration: 42 * time.Microsecond})

	assert.Equal(t, strings.Join([]string{
		"DB Connected...",
		"3 embeddings generated.",
		"query: CREATE Collection if not existing",
		"Collection 'test' not found, building collection...",
		"Time taken: 1500 us",
		"Build status: SUCCESSFUL",
		"query: Compile Collection from document",
		"Time taken: 42 us",
		"Build result: completed",
	}, "\n")+"\n", buf.String())
}

func TestConsole_SkipPaths(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Provisioned("test", domain.ProvisionResult{Created: false})
	c.Written("test", domain.WriteResult{Outcome: domain.OutcomeCollectionMissing})

	out := buf.String()
	assert.Contains(t, out, "Collection 'test' already exists, skipping build...")
	assert.NotContains(t, out, "Build status")
	assert.Contains(t, out, "Collection does not exist!!!")
	assert.NotContains(t, out, "Build result")
}

func TestConsole_Collections(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Collections(domain.ListResult{
		Collections: []domain.CollectionInfo{{Name: "a"}, {Name: "b"}},
		Duration:    time.Millisecond,
	}, map[string]uint64{"a": 7})

	assert.Equal(t, strings.Join([]string{
		"query: GET All Collections",
		"Found 2 collection(s)...",
		"Time taken: 1000 us",
		"Name: a (7 points)",
		"Name: b",
	}, "\n")+"\n", buf.String())
}

func TestConsole_Failed(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Failed(domain.AtStage(domain.StageWrite, domain.ErrWrite))
	assert.Equal(t, "ingest aborted at write: write failed\n", buf.String())
}

func update(t *testing.T, m Progress, msg tea.Msg) (Progress, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	p, ok := next.(Progress)
	require.True(t, ok)
	return p, cmd
}

func TestProgress_Steps(t *testing.T) {
	m := NewProgress("ingesting doc.txt", nil)
	require.NotNil(t, m.Init())

	m, _ = update(t, m, stageStartedMsg{stage: domain.StageEmbed})
	m, _ = update(t, m, stageStartedMsg{stage: domain.StageProvision})
	m, _ = update(t, m, stageDoneMsg{stage: domain.StageProvision, detail: "collection 'test' created"})

	view := m.View()
	assert.Contains(t, view, "ingesting doc.txt")
	assert.Contains(t, view, "✓ provision")
	assert.Contains(t, view, "collection 'test' created")
	assert.Contains(t, view, " embed")
	assert.NotContains(t, view, "✓ embed")

	m, _ = update(t, m, stageDoneMsg{stage: domain.StageConnect, detail: "memory"})
	assert.Len(t, m.steps, 3, "done without start adds a step")

	m, cmd := update(t, m, doneMsg{})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "done")
	assert.NoError(t, m.Err())
}

func TestProgress_Failure(t *testing.T) {
	m := NewProgress("run", nil)
	m, _ = update(t, m, stageStartedMsg{stage: domain.StageWrite})
	boom := errors.New("ingest aborted at write: boom")
	m, cmd := update(t, m, failedMsg{err: boom})

	assert.NotNil(t, cmd)
	assert.Equal(t, boom, m.Err())
	assert.Contains(t, m.View(), "ingest aborted at write: boom")
	assert.Contains(t, m.View(), "· write")
}

func TestProgress_CtrlCCancels(t *testing.T) {
	called := false
	m := NewProgress("run", func() { called = true })
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, called)
	assert.True(t, m.Canceled())
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "canceled")
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestTUIReporter_ForwardsEvents(t *testing.T) {
	s := &recordingSender{}
	r := &TUIReporter{p: s}

	r.StageStarted(domain.StageWrite)
	r.Written("test", domain.WriteResult{Outcome: domain.OutcomeCollectionMissing})
	r.Failed(errors.New("x"))
	r.Done()

	require.Len(t, s.msgs, 4)
	assert.Equal(t, stageStartedMsg{stage: domain.StageWrite}, s.msgs[0])
	done, ok := s.msgs[1].(stageDoneMsg)
	require.True(t, ok)
	assert.Contains(t, done.detail, "does not exist")
	assert.IsType(t, failedMsg{}, s.msgs[2])
	assert.Equal(t, doneMsg{}, s.msgs[3])
}

var _ Reporter = (*Console)(nil)
var _ Reporter = (*TUIReporter)(nil)
var _ Reporter = Nop{}
