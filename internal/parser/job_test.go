package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eambriza/pmp-coach/internal/model"
)

func TestImporterSuccess(t *testing.T) {
	var (
		applied []model.Question
		upload  Upload
	)
	im := NewImporter(New(0), func(_ context.Context, src Upload, qs []model.Question) error {
		applied = qs
		upload = src
		return nil
	})
	assert.Equal(t, JobIdle, im.Status().State)

	require.True(t, im.Start(context.Background(), "q.csv", []byte(splitRows(3, 1))))
	im.Wait()

	st := im.Status()
	assert.Equal(t, JobSucceeded, st.State)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, "q.csv", st.Filename)
	assert.Len(t, applied, 3)
	assert.Equal(t, "q.csv", upload.Filename)
	assert.Equal(t, HashData([]byte(splitRows(3, 1))), upload.Hash)
}

func TestImporterParseFailureSkipsApply(t *testing.T) {
	called := false
	im := NewImporter(New(0), func(context.Context, Upload, []model.Question) error {
		called = true
		return nil
	})

	require.True(t, im.Start(context.Background(), "q.pdf", []byte("%PDF")))
	im.Wait()

	st := im.Status()
	assert.Equal(t, JobFailed, st.State)
	assert.Contains(t, st.Error, "unsupported file format")
	assert.False(t, called)
}

func TestImporterApplyFailure(t *testing.T) {
	im := NewImporter(New(0), func(context.Context, Upload, []model.Question) error {
		return errors.New("disk full")
	})

	require.True(t, im.Start(context.Background(), "q.csv", []byte(splitRows(1, 0))))
	im.Wait()

	st := im.Status()
	assert.Equal(t, JobFailed, st.State)
	assert.Equal(t, "disk full", st.Error)
	assert.Zero(t, st.Count)
}

func TestImporterRejectsConcurrentStart(t *testing.T) {
	release := make(chan struct{})
	im := NewImporter(New(0), func(context.Context, Upload, []model.Question) error {
		<-release
		return nil
	})

	require.True(t, im.Start(context.Background(), "a.csv", []byte(splitRows(2, 0))))
	assert.Eventually(t, func() bool { return im.Status().State == JobRunning }, time.Second, time.Millisecond)
	assert.False(t, im.Start(context.Background(), "b.csv", []byte(splitRows(2, 0))))
	close(release)
	im.Wait()

	st := im.Status()
	assert.Equal(t, JobSucceeded, st.State)
	assert.Equal(t, "a.csv", st.Filename)
}

func TestHashData(t *testing.T) {
	assert.Equal(t, HashData([]byte("abc")), HashData([]byte("abc")))
	assert.NotEqual(t, HashData([]byte("abc")), HashData([]byte("abd")))
	assert.Len(t, HashData(nil), 64)
}
