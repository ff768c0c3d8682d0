// Package report tells the operator what an ingestion run is doing.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"ragingest/internal/domain"
)

// Reporter receives pipeline progress events. Implementations must be safe
// for concurrent use since provisioning and embedding run in parallel.
type Reporter interface {
	Connected(endpoint string)
	StageStarted(stage string)
	Segmented(source string, segments int)
	Embedded(model string, embeddings int)
	Provisioned(collection string, res domain.ProvisionResult)
	Written(collection string, res domain.WriteResult)
	Collections(res domain.ListResult, counts map[string]uint64)
	Failed(err error)
	Done()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Connected(string) {}
func (Nop) StageStarted(string) {}
func (Nop) Segmented(string, int) {}
func (Nop) Embedded(string, int) {}
func (Nop) Provisioned(string, domain.ProvisionResult) {}
func (Nop) Written(string, domain.WriteResult) {}
func (Nop) Collections(domain.ListResult, map[string]uint64) {}
func (Nop) Failed(error) {}
func (Nop) Done() {}

// Console prints one line per event.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	query lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	muted lipgloss.Style
}

// NewConsole returns a Console writing to w (stdout when nil). Colors are
// only emitted when w is a terminal.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:     w,
		query: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		muted: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, s)
}

func (c *Console) Connected(string) { c.println("DB Connected...") }

func (c *Console) StageStarted(stage string) {
	if stage == domain.StageWrite {
		c.println(c.query.Render("query: Compile Collection from document"))
	}
}

func (c *Console) Segmented(source string, segments int) {
	c.println(c.muted.Render(fmt.Sprintf("%d segment(s) read from %s", segments, source)))
}

func (c *Console) Embedded(_ string, embeddings int) {
	c.println(strconv.Itoa(embeddings) + " embeddings generated.")
}

func (c *Console) Provisioned(collection string, res domain.ProvisionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.query.Render("query: CREATE Collection if not existing"))
	if !res.Created {
		fmt.Fprintf(c.w, "Collection '%s' already exists, skipping build...\n", collection)
		return
	}
	fmt.Fprintf(c.w, "Collection '%s' not found, building collection...\n", collection)
	fmt.Fprintln(c.w, c.muted.Render(fmt.Sprintf("Time taken: %d us", res.Duration.Microseconds())))
	fmt.Fprintln(c.w, "Build status: "+c.ok.Render("SUCCESSFUL"))
}

func (c *Console) Written(_ string, res domain.WriteResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Outcome == domain.OutcomeCollectionMissing {
		fmt.Fprintln(c.w, c.warn.Render("Collection does not exist!!!"))
		return
	}
	fmt.Fprintln(c.w, c.muted.Render(fmt.Sprintf("Time taken: %d us", res.Duration.Microseconds())))
	status := c.ok.Render(string(res.Status))
	if res.Status == domain.StatusFailed {
		status = c.fail.Render(string(res.Status))
	}
	fmt.Fprintln(c.w, "Build result: "+status)
}

func (c *Console) Collections(res domain.ListResult, counts map[string]uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.query.Render("query: GET All Collections"))
	fmt.Fprintf(c.w, "Found %d collection(s)...\n", len(res.Collections))
	fmt.Fprintln(c.w, c.muted.Render(fmt.Sprintf("Time taken: %d us", res.Duration.Microseconds())))
	for _, col := range res.Collections {
		if n, ok := counts[col.Name]; ok {
			fmt.Fprintf(c.w, "Name: %s %s\n", col.Name, c.muted.Render(fmt.Sprintf("(%d points)", n)))
			continue
		}
		fmt.Fprintf(c.w, "Name: %s\n", col.Name)
	}
}

func (c *Console) Failed(err error) { c.println(c.fail.Render(err.Error())) }

func (c *Console) Done() {}
