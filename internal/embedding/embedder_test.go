package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragingest/internal/domain"
)

// fakeModel returns vectors of a fixed size, or a canned result.
type fakeModel struct {
	dim       int
	out       []domain.Embedding
	encodeErr error
}

func (m *fakeModel) Name() string   { return "fake" }
func (m *fakeModel) Dimension() int { return m.dim }

func (m *fakeModel) Encode(_ context.Context, texts []string) ([]domain.Embedding, error) {
	if m.encodeErr != nil {
		return nil, m.encodeErr
	}
	if m.out != nil {
		return m.out, nil
	}
	out := make([]domain.Embedding, len(texts))
	for i := range texts {
		out[i] = make(domain.Embedding, m.dim)
		out[i][0] = float32(i)
	}
	return out, nil
}

type fakeProvider struct {
	model   *fakeModel
	loadErr error
	loads   atomic.Int32
}

func (p *fakeProvider) Load(_ context.Context, _ string) (domain.EmbeddingModel, error) {
	p.loads.Add(1)
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.model, nil
}

func TestEmbed_AlignedAndUniform(t *testing.T) {
	p := &fakeProvider{model: &fakeModel{dim: 384}}
	texts := []string{"alpha", "beta", "gamma"}

	out, err := Embed(context.Background(), NewOffloader(1), p, "m", texts)
	require.NoError(t, err)

	require.Len(t, out, len(texts))
	for i, e := range out {
		assert.Len(t, e, 384)
		assert.Equal(t, float32(i), e[0])
	}
}

func TestEmbed_LoadsModelPerCall(t *testing.T) {
	p := &fakeProvider{model: &fakeModel{dim: 4}}
	off := NewOffloader(1)

	_, err := Embed(context.Background(), off, p, "m", []string{"a"})
	require.NoError(t, err)
	_, err = Embed(context.Background(), off, p, "m", []string{"b"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), p.loads.Load())
}

func TestEmbed_ModelLoadError(t *testing.T) {
	p := &fakeProvider{loadErr: errors.New("no such model")}

	out, err := Embed(context.Background(), NewOffloader(1), p, "m", []string{"a"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrModelLoad)
	assert.Contains(t, err.Error(), "no such model")
}

func TestEmbed_EncodeError(t *testing.T) {
	p := &fakeProvider{model: &fakeModel{dim: 4, encodeErr: errors.New("bad input")}}

	out, err := Embed(context.Background(), NewOffloader(1), p, "m", []string{"a"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrEncode)
}

func TestEmbed_RejectsMisalignedOutput(t *testing.T) {
	p := &fakeProvider{model: &fakeModel{dim: 2, out: []domain.Embedding{{1, 2}}}}

	out, err := Embed(context.Background(), NewOffloader(1), p, "m", []string{"a", "b"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrEncode)
}

func TestEmbed_RejectsWrongDimension(t *testing.T) {
	p := &fakeProvider{model: &fakeModel{dim: 3, out: []domain.Embedding{{1, 2, 3}, {1, 2}}}}

	_, err := Embed(context.Background(), NewOffloader(1), p, "m", []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrEncode)
	assert.Contains(t, err.Error(), "embedding 1 has dimension 2, want 3")
}

func TestValidate_Empty(t *testing.T) {
	assert.NoError(t, Validate(nil, 0, 384))
}

func TestOffloader_DefaultsToOneWorker(t *testing.T) {
	assert.Equal(t, int64(1), NewOffloader(0).Workers())
	assert.Equal(t, int64(4), NewOffloader(4).Workers())
}

func TestDispatch_RunsOffCallerGoroutine(t *testing.T) {
	off := NewOffloader(1)
	release := make(chan struct{})

	task := Dispatch(context.Background(), off, func(context.Context) (int, error) {
		<-release
		return 42, nil
	})

	// Dispatch returned while the task is still blocked.
	select {
	case <-task.Done():
		t.Fatal("task finished before release")
	default:
	}

	close(release)
	v, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDispatch_RecoversPanic(t *testing.T) {
	task := Dispatch(context.Background(), NewOffloader(1), func(context.Context) (int, error) {
		panic("boom")
	})

	_, err := task.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestDispatch_CanceledWhileWaitingForSlot(t *testing.T) {
	off := NewOffloader(1)
	release := make(chan struct{})
	defer close(release)

	Dispatch(context.Background(), off, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	second := Dispatch(ctx, off, func(context.Context) (int, error) { return 2, nil })
	_, err := second.Wait(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTask_WaitCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	task := Dispatch(context.Background(), NewOffloader(1), func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
