package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driving"
)

// mockVerifier implements driving.Ingestor with a canned verify report.
type mockVerifier struct {
	report *driving.VerifyReport
	err    error
}

func (m *mockVerifier) Ingest(_ context.Context, _ driving.IngestOptions) (*domain.RunSummary, error) {
	return nil, errors.New("not used")
}

func (m *mockVerifier) Verify(_ context.Context, table string, _ int) (*driving.VerifyReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.report.Table = table
	return m.report, nil
}

func (m *mockVerifier) Status(_ context.Context) (*driving.IngestStatus, error) {
	return &driving.IngestStatus{}, nil
}

func setupVerifyTest(mock *mockVerifier) func() {
	oldNew := newIngestor
	newIngestor = func(_ string, _ bool) (driving.Ingestor, func(), error) {
		return mock, func() {}, nil
	}
	return func() {
		newIngestor = oldNew
	}
}

func TestVerifyCmd_Use(t *testing.T) {
	assert.Equal(t, "verify [table]", verifyCmd.Use)
}

func TestVerifyCmd_PrintsCountAndSample(t *testing.T) {
	mock := &mockVerifier{report: &driving.VerifyReport{
		Count: 3,
		Sample: []domain.PatchRecord{
			{SlideID: "tumor_001", Index: 0, X: 0, Y: 0, Image: []byte("abc")},
			{SlideID: "tumor_001", Index: 1, X: 256, Y: 0, Image: []byte("defg")},
		},
	}}
	cleanup := setupVerifyTest(mock)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"verify"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "3 records")
	assert.Contains(t, buf.String(), "tumor_001 patch 0 at (0,0): 3 bytes")
	assert.Contains(t, buf.String(), "tumor_001 patch 1 at (256,0): 4 bytes")
}

func TestVerifyCmd_TableArgument(t *testing.T) {
	mock := &mockVerifier{report: &driving.VerifyReport{Count: 0}}
	cleanup := setupVerifyTest(mock)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"verify", "training_patches"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), `Table "training_patches"`)
}

func TestVerifyCmd_VerifyError(t *testing.T) {
	mock := &mockVerifier{err: errors.New("table missing")}
	cleanup := setupVerifyTest(mock)
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"verify"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "verify failed")
}
