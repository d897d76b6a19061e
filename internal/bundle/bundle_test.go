package bundle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/apidiff/apidiff/internal/artifact"
	"github.com/apidiff/apidiff/internal/comparator"
	"github.com/apidiff/apidiff/internal/fuzzcase"
)

func writeSingleBundle(t *testing.T, outDir string) string {
	t.Helper()
	w, err := artifact.NewWriter(outDir, nil, artifact.Metadata{ToolVersion: "v1"})
	require.NoError(t, err)

	req := fuzzcase.NewRequestCase("case-1", "getUser", "GET", "/users/{id}")
	req.SetPathParam("id", "u-1")
	respA := &fuzzcase.ResponseCase{StatusCode: 200}
	respB := &fuzzcase.ResponseCase{StatusCode: 404}

	dir, err := w.WriteSingleMismatch("getUser", "case-1", req, respA, respB,
		&comparator.Result{Match: false, MismatchType: comparator.MismatchStatusCode}, time.Now().UTC())
	require.NoError(t, err)
	return dir
}

func writeChainBundle(t *testing.T, outDir string) string {
	t.Helper()
	w, err := artifact.NewWriter(outDir, nil, artifact.Metadata{ToolVersion: "v1"})
	require.NoError(t, err)

	req := fuzzcase.NewRequestCase("step-0", "createUser", "POST", "/users")
	chain := &fuzzcase.ChainCase{ID: "chain-1", Steps: []fuzzcase.ChainStep{{Request: req}}}
	execA := &fuzzcase.ChainExecution{ChainID: "chain-1", Steps: []fuzzcase.ChainStepExecution{
		{Request: req, Response: &fuzzcase.ResponseCase{StatusCode: 201}},
	}}
	execB := &fuzzcase.ChainExecution{ChainID: "chain-1", Steps: []fuzzcase.ChainStepExecution{
		{Request: req, Response: &fuzzcase.ResponseCase{StatusCode: 500}},
	}}

	dir, err := w.WriteChainMismatch("createUser", "chain-1", chain, execA, execB,
		&comparator.Result{Match: false}, time.Now().UTC())
	require.NoError(t, err)
	return dir
}

func TestDiscoverBundles_FindsDirectoriesWithCaseOrChainFiles(t *testing.T) {
	outDir := t.TempDir()
	singleDir := writeSingleBundle(t, outDir)
	chainDir := writeChainBundle(t, outDir)

	paths, err := DiscoverBundles(outDir)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{singleDir, chainDir}, paths)
}

func TestDiscoverBundles_SkipsDirectoriesWithoutCaseOrChain(t *testing.T) {
	outDir := t.TempDir()
	mismatchesDir := filepath.Join(outDir, "mismatches")
	require.NoError(t, os.MkdirAll(filepath.Join(mismatchesDir, "empty-bundle"), 0o755))

	paths, err := DiscoverBundles(outDir)
	require.NoError(t, err)
	require.Empty(t, paths)
}

func TestDiscoverBundles_MissingDirectory(t *testing.T) {
	_, err := DiscoverBundles(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestLoadBundle_Single(t *testing.T) {
	outDir := t.TempDir()
	dir := writeSingleBundle(t, outDir)

	b, err := LoadBundle(dir)
	require.NoError(t, err)
	require.Equal(t, KindSingle, b.Kind)
	require.NotNil(t, b.Case)
	require.Equal(t, "getUser", b.Case.OperationID)
	require.False(t, b.Diff.Match)
	require.NotNil(t, b.Metadata)
}

func TestLoadBundle_Chain(t *testing.T) {
	outDir := t.TempDir()
	dir := writeChainBundle(t, outDir)

	b, err := LoadBundle(dir)
	require.NoError(t, err)
	require.Equal(t, KindChain, b.Kind)
	require.NotNil(t, b.Chain)
	require.Equal(t, "chain-1", b.Chain.ID)
}

func TestLoadBundle_MissingDiffFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadBundle(dir)
	require.Error(t, err)
}

func TestLoadBundle_MalformedDiffJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "diff.json"), []byte("not json"), 0o644))

	_, err := LoadBundle(dir)
	require.Error(t, err)
}

func TestExtractLinkFieldsFromChain_DelegatesToFuzzcase(t *testing.T) {
	req0 := fuzzcase.NewRequestCase("s0", "createUser", "POST", "/users")
	req1 := fuzzcase.NewRequestCase("s1", "getUser", "GET", "/users/{id}")
	chain := &fuzzcase.ChainCase{Steps: []fuzzcase.ChainStep{
		{Request: req0},
		{Request: req1, LinkSource: &fuzzcase.LinkSource{Step: 0, Field: "$response.body#/id", ParamName: "id", ParamIn: "path"}},
	}}

	bodyPointers, headerRefs := ExtractLinkFieldsFromChain(chain)
	require.Contains(t, bodyPointers, "/id")
	require.Empty(t, headerRefs)
}
