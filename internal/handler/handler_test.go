package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/loadfile/internal/config"
	"github.com/JonMunkholm/loadfile/internal/core"
	"github.com/JonMunkholm/loadfile/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const familyCSV = `BEGBATES,PARENT_BATES,CUSTODIAN,NATIVE_PATH
ABC000001,,Smith,NATIVES/ABC000001.msg
ABC000002,ABC000001,Smith,NATIVES/ABC000002.pdf
ABC000003,,Jones,
`

func csvBuild() core.BuildOptions {
	return core.BuildOptions{
		HasHeader:    true,
		KeyColumn:    "BEGBATES",
		ParentColumn: "PARENT_BATES",
		Representatives: []core.RepresentativeColumn{
			{Column: "NATIVE_PATH", Type: core.RepNative},
		},
	}
}

func TestImportFile_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prod001.csv", familyCSV)

	coll, res, err := ImportFile(context.Background(), ImportOptions{Path: path, Build: csvBuild()})
	require.NoError(t, err)

	assert.Equal(t, core.PhaseComplete, res.Phase)
	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, "prod001.csv", res.FileName)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, int64(len(familyCSV)), res.BytesRead)
	assert.Equal(t, 1, res.Stats.Parents)
	assert.Equal(t, 1, res.Stats.Children)
	assert.Equal(t, 1, res.Stats.StandAlone)
	assert.Equal(t, 2, res.Stats.Natives)

	doc, ok := coll.Get("ABC000002")
	require.True(t, ok)
	assert.Equal(t, "ABC000001", doc.ParentID)
	assert.Equal(t, "Smith", doc.Field("CUSTODIAN"))
	assert.Equal(t, filepath.Join(dir, "NATIVES", "ABC000002.pdf"), doc.Representative(core.RepNative).Files[1])
}

func TestImportFile_ConcordanceDAT(t *testing.T) {
	dir := t.TempDir()
	row := func(fields ...string) string {
		for i, f := range fields {
			fields[i] = "þ" + f + "þ"
		}
		return strings.Join(fields, "\x14") + "\r\n"
	}
	content := row("BEGBATES", "TITLE") + row("DAT000001", "Quarterly\nreport") + row("DAT000002", "Memo")
	path := writeFile(t, dir, "prod002.DAT", content)

	coll, res, err := ImportFile(context.Background(), ImportOptions{
		Path:  path,
		Build: core.BuildOptions{HasHeader: true, KeyColumn: "BEGBATES"},
	})
	require.NoError(t, err)
	assert.Equal(t, "dat", res.Format)
	require.Equal(t, 2, coll.Len())
	assert.Equal(t, "Quarterly\nreport", coll.At(0).Field("TITLE"))
}

func TestImportFile_Windows1252(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "legacy.csv", "DOCID,TITLE\nW1,caf\xe9\n")

	coll, _, err := ImportFile(context.Background(), ImportOptions{
		Path:     path,
		Encoding: "windows-1252",
		Build:    core.BuildOptions{HasHeader: true, KeyColumn: "DOCID"},
	})
	require.NoError(t, err)
	assert.Equal(t, "café", coll.At(0).Field("TITLE"))
}

func TestImportFile_DelimiterOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pipes.txt", "DOCID|TITLE\nP1|a,b\n")

	coll, res, err := ImportFile(context.Background(), ImportOptions{
		Path:       path,
		Format:     "CSV",
		Delimiters: DelimiterOverrides{Field: "|"},
		Build:      core.BuildOptions{HasHeader: true, KeyColumn: "DOCID"},
	})
	require.NoError(t, err)
	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, "a,b", coll.At(0).Field("TITLE"))
}

func TestImportFile_ChildSeparatorFromProfile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "attach.csv", "ID,ATTACH\nP,A|B\nA,\nB,\n")
	build := core.BuildOptions{HasHeader: true, KeyColumn: "ID", ChildColumn: "ATTACH"}

	coll, _, err := ImportFile(context.Background(), ImportOptions{
		Path:       path,
		Delimiters: DelimiterOverrides{MultiValue: "|"},
		Build:      build,
	})
	require.NoError(t, err)
	p, _ := coll.Get("P")
	assert.Equal(t, []string{"A", "B"}, p.ChildIDs())
	assert.Equal(t, 2, coll.ChildCount())

	build.ChildSeparator = ","
	coll, _, err = ImportFile(context.Background(), ImportOptions{
		Path:       writeFile(t, dir, "attach2.csv", "ID,ATTACH\nP,\"A,B\"\nA,\nB,\n"),
		Delimiters: DelimiterOverrides{MultiValue: "|"},
		Build:      build,
	})
	require.NoError(t, err)
	p, _ = coll.Get("P")
	assert.Equal(t, []string{"A", "B"}, p.ChildIDs(), "explicit separator wins over the profile")
}

func TestReadLoadFile_ReleasesFile(t *testing.T) {
	if _, err := os.Stat("/proc/self/fd"); err != nil {
		t.Skip("open file table not available")
	}
	dir := t.TempDir()
	path := writeFile(t, dir, "prod001.csv", familyCSV)
	def, ok := core.GetFormat("csv")
	require.True(t, ok)

	var result core.ImportResult
	logger := logging.WithFields(context.Background())
	contents, err := readLoadFile(context.Background(), logger, def, def.Delimiters, ImportOptions{Path: path}, &result)
	require.NoError(t, err)
	assert.Len(t, contents.rows, 4)
	assert.Equal(t, int64(len(familyCSV)), result.BytesRead)

	fds, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	for _, fd := range fds {
		target, err := os.Readlink(filepath.Join("/proc/self/fd", fd.Name()))
		if err != nil {
			continue
		}
		assert.NotEqual(t, path, target, "load file still open after reading")
	}
}

func TestImportFile_Opticon(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "images.opt", strings.Join([]string{
		`IMG000001,VOL001,IMAGES\001\IMG000001.TIF,Y,,,2`,
		`IMG000002,VOL001,IMAGES\001\IMG000002.TIF,,,,`,
		`IMG000003,VOL001,IMAGES\001\IMG000003.TIF,Y,,,1`,
	}, "\n")+"\n")

	coll, res, err := ImportFile(context.Background(), ImportOptions{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "opt", res.Format)
	assert.Equal(t, 3, res.Rows)
	require.Equal(t, 2, coll.Len())
	assert.Equal(t, 3, res.Stats.Images)

	doc, ok := coll.Get("IMG000001")
	require.True(t, ok)
	assert.Equal(t, []string{
		filepath.Join(dir, "IMAGES", "001", "IMG000001.TIF"),
		filepath.Join(dir, "IMAGES", "001", "IMG000002.TIF"),
	}, doc.Representative(core.RepImage).Paths())
}

func TestImportFile_Errors(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "prod001.csv", familyCSV)
	writeFile(t, dir, "unknown.xyz", "x")

	tests := []struct {
		name    string
		opts    ImportOptions
		wantIs  error
		wantErr string
	}{
		{
			name:    "unknown extension",
			opts:    ImportOptions{Path: filepath.Join(dir, "unknown.xyz")},
			wantIs:  core.ErrConfiguration,
			wantErr: "cannot infer load-file format",
		},
		{
			name:    "unknown format key",
			opts:    ImportOptions{Path: csvPath, Format: "xlsx"},
			wantIs:  core.ErrConfiguration,
			wantErr: "unknown load-file format",
		},
		{
			name:    "missing file",
			opts:    ImportOptions{Path: filepath.Join(dir, "missing.csv"), Build: csvBuild()},
			wantIs:  os.ErrNotExist,
			wantErr: "opening load file",
		},
		{
			name:    "too large",
			opts:    ImportOptions{Path: csvPath, Build: csvBuild(), MaxFileSize: 10},
			wantIs:  core.ErrFileTooLarge,
			wantErr: "limit 10",
		},
		{
			name:    "missing column",
			opts:    ImportOptions{Path: csvPath, Build: core.BuildOptions{HasHeader: true, KeyColumn: "DOCID"}},
			wantIs:  core.ErrConfiguration,
			wantErr: "missing required columns",
		},
		{
			name:    "colliding delimiter override",
			opts:    ImportOptions{Path: csvPath, Build: csvBuild(), Delimiters: DelimiterOverrides{Qualifier: ","}},
			wantIs:  core.ErrConfiguration,
			wantErr: "must differ from the",
		},
		{
			name:    "unknown encoding",
			opts:    ImportOptions{Path: csvPath, Build: csvBuild(), Encoding: "klingon-8"},
			wantIs:  core.ErrConfiguration,
			wantErr: "unsupported encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll, res, err := ImportFile(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Nil(t, coll)
			assert.Equal(t, core.PhaseFailed, res.Phase)
			assert.Equal(t, err.Error(), res.Error)
			assert.True(t, errors.Is(err, tt.wantIs), "error %v should match %v", err, tt.wantIs)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImportFile_ParseErrorAborts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.csv", "DOCID,TITLE\nB1,\"never closed\n")

	_, _, err := ImportFile(context.Background(), ImportOptions{
		Path:  path,
		Build: core.BuildOptions{HasHeader: true, KeyColumn: "DOCID"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrParse))
	assert.Equal(t, "PRS001", core.MapError(err).Code)
}

func TestImportFile_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prod001.csv", familyCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, res, err := ImportFile(ctx, ImportOptions{Path: path, Build: csvBuild()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, core.PhaseFailed, res.Phase)
}

func TestImportFile_MappingFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prod001.csv", familyCSV)
	mapping := writeFile(t, dir, "mapping.yaml", `
key: BEGBATES
parent: PARENT_BATES
base_dir: /mnt/review
representatives:
  - column: NATIVE_PATH
    type: native
`)

	coll, _, err := ImportFile(context.Background(), ImportOptions{
		Path:        path,
		MappingFile: mapping,
		Build:       core.BuildOptions{HasHeader: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, coll.ParentCount())
	doc, _ := coll.Get("ABC000001")
	assert.Equal(t, filepath.Join("/mnt/review", "NATIVES", "ABC000001.msg"), doc.Representative(core.RepNative).Files[1])
}

func TestDelimiterOverrides_Apply(t *testing.T) {
	d, err := DelimiterOverrides{Field: "tab", Qualifier: "none", MultiValue: "|"}.Apply(core.CSVDelimiters())
	require.NoError(t, err)
	assert.Equal(t, '\t', d.Field())
	assert.Equal(t, core.NoChar, d.Qualifier())
	assert.Equal(t, '\n', d.Record())
	assert.Equal(t, '|', d.MultiValue())

	assert.True(t, DelimiterOverrides{}.IsZero())
	assert.False(t, DelimiterOverrides{Escape: "\\"}.IsZero())
}

func buildCollection(t *testing.T, docs ...*core.Document) *core.Collection {
	t.Helper()
	coll := core.NewCollection()
	coll.AddRange(docs)
	coll.RelinkFamilies()
	return coll
}

func doc(id, parent string, fields ...string) *core.Document {
	d := core.NewDocument(id)
	d.ParentID = parent
	for i := 0; i+1 < len(fields); i += 2 {
		d.SetField(fields[i], fields[i+1])
	}
	return d
}

func TestOverlayCollections_Metadata(t *testing.T) {
	base := buildCollection(t,
		doc("A1", "", "TITLE", "Old", "CUSTODIAN", "Smith"),
		doc("A2", "A1", "TITLE", "Attachment"),
	)
	overlay := buildCollection(t,
		doc("A1", "", "TITLE", "New"),
		doc("Z9", "", "TITLE", "Stray"),
	)

	res, err := OverlayCollections(context.Background(), base, overlay, core.OverlayOptions{MergeMetadata: true}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Added)

	require.Equal(t, 2, base.Len())
	a1, _ := base.Get("A1")
	assert.Equal(t, "New", a1.Field("TITLE"))
	assert.Equal(t, "Smith", a1.Field("CUSTODIAN"))
	assert.Equal(t, 0, base.Index("A1"), "merged document keeps its position")
	assert.Equal(t, []string{"A2"}, a1.ChildIDs(), "families untouched without MergeFamilies")

	o1, _ := overlay.Get("A1")
	assert.Equal(t, "New", o1.Field("TITLE"))
	assert.False(t, o1.HasField("CUSTODIAN"), "overlay input is not modified")
}

func TestOverlayCollections_AddNew(t *testing.T) {
	base := buildCollection(t, doc("A1", ""))
	overlay := core.NewCollection()
	overlay.Add(doc("A2", "A1", "TITLE", "Late attachment"))

	res, err := OverlayCollections(context.Background(), base, overlay, core.OverlayOptions{MergeMetadata: true}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	require.Equal(t, 2, base.Len())
	assert.Equal(t, []string{"A2"}, base.At(0).ChildIDs())
	assert.Equal(t, 1, base.ChildCount())
}

func TestOverlayCollections_MergeFamilies(t *testing.T) {
	base := buildCollection(t,
		doc("P1", ""),
		doc("C1", "P1"),
		doc("C2", ""),
	)
	// The overlay adopts C2 under P1 by listing it as a child.
	op := core.NewDocument("P1")
	oc2 := core.NewDocument("C2")
	overlay := core.NewCollection()
	overlay.Add(op)
	overlay.Add(oc2)
	require.NoError(t, overlay.SetParent("C2", "P1"))

	res, err := OverlayCollections(context.Background(), base, overlay, core.OverlayOptions{MergeFamilies: true}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matched)
	assert.Empty(t, res.Unresolved)

	p1, _ := base.Get("P1")
	assert.ElementsMatch(t, []string{"C1", "C2"}, p1.ChildIDs())
	c2, _ := base.Get("C2")
	assert.Equal(t, "P1", c2.ParentID)
	assert.Equal(t, 1, base.ParentCount())
	assert.Equal(t, 2, base.ChildCount())
}


func TestOverlayCollections_MergeFamiliesOverlayWiringWins(t *testing.T) {
	// The overlay moves C1 from P1 to P2; the result must not depend on
	// the order the overlay lists its documents in.
	for _, order := range [][]string{{"P2", "P1", "C1"}, {"P1", "P2", "C1"}, {"C1", "P1", "P2"}} {
		t.Run(strings.Join(order, ","), func(t *testing.T) {
			base := buildCollection(t,
				doc("P1", ""),
				doc("C1", "P1"),
				doc("C2", "P1"),
				doc("P2", ""),
			)
			overlay := core.NewCollection()
			for _, id := range order {
				overlay.Add(core.NewDocument(id))
			}
			require.NoError(t, overlay.SetParent("C1", "P2"))

			res, err := OverlayCollections(context.Background(), base, overlay, core.OverlayOptions{MergeFamilies: true}, false)
			require.NoError(t, err)
			assert.Equal(t, 3, res.Matched)

			c1, _ := base.Get("C1")
			assert.Equal(t, "P2", c1.ParentID)
			p1, _ := base.Get("P1")
			assert.Equal(t, []string{"C2"}, p1.ChildIDs(), "base child the overlay does not mention stays")
			p2, _ := base.Get("P2")
			assert.Equal(t, []string{"C1"}, p2.ChildIDs())
			assert.Equal(t, 2, base.ParentCount())
			assert.Equal(t, 2, base.ChildCount())
		})
	}
}

func TestOverlayCollections_MergeFamiliesDetachesChild(t *testing.T) {
	base := buildCollection(t, doc("P1", ""), doc("C1", "P1"))
	overlay := buildCollection(t, doc("C1", ""), doc("P1", ""))

	_, err := OverlayCollections(context.Background(), base, overlay, core.OverlayOptions{MergeFamilies: true}, false)
	require.NoError(t, err)

	c1, _ := base.Get("C1")
	assert.Empty(t, c1.ParentID)
	assert.Equal(t, 0, base.ParentCount())
	assert.Equal(t, 2, base.StandAloneCount())
}
func TestRun(t *testing.T) {
	dir := t.TempDir()
	basePath := writeFile(t, dir, "prod001.csv", familyCSV)
	overlayPath := writeFile(t, dir, "fix.csv", "BEGBATES,CUSTODIAN,DATESENT\nABC000003,Jones; Bob,2011-03-15 09:30:00\n")
	editsPath := writeFile(t, dir, "edits.yaml", `
edits:
  - kind: metadata
    field: CUSTODIAN
    find: "; "
    replace: ", "
  - kind: date
    field: DATESENT
    output_format: "01/02/2006"
`)

	cfg := &config.Config{
		Import: config.ImportConfig{
			Path:            basePath,
			Encoding:        "utf-8",
			HasHeader:       true,
			KeyColumn:       "BEGBATES",
			ParentColumn:    "PARENT_BATES",
			ChildSeparator:  ";",
			Representatives: []string{"NATIVE_PATH=native"},
			PathSeparator:   ";",
			MaxFileSize:     1 << 20,
		},
		Overlay: config.OverlayConfig{
			Path:                 overlayPath,
			HasHeader:            true,
			MergeMetadata:        true,
			MergeRepresentatives: true,
		},
		Transform: config.TransformConfig{EditsFile: editsPath},
		Logging:   config.LoggingConfig{Level: "info", Format: "text"},
	}

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, res.RunID, res.Import.RunID)
	assert.Equal(t, core.PhaseComplete, res.Phase)
	require.NotNil(t, res.Overlay)
	assert.Equal(t, 1, res.Merge.Matched)
	assert.Equal(t, 2, res.Edits)
	assert.Equal(t, 3, res.Collection.Len())

	d3, _ := res.Collection.Get("ABC000003")
	assert.Equal(t, "Jones, Bob", d3.Field("CUSTODIAN"))
	assert.Equal(t, "03/15/2011", d3.Field("DATESENT"))
	assert.Equal(t, 2, res.Stats.Natives, "overlay without native column keeps base natives")
}

func TestRun_BadEditsFailBeforeImport(t *testing.T) {
	dir := t.TempDir()
	editsPath := writeFile(t, dir, "edits.yaml", "edits:\n  - kind: date\n    field: D\n")

	cfg := &config.Config{
		Import: config.ImportConfig{
			Path:      filepath.Join(dir, "never-read.csv"),
			HasHeader: true,
			KeyColumn: "DOCID",
		},
		Transform: config.TransformConfig{EditsFile: editsPath},
	}

	res, err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output format is required")
	assert.Equal(t, core.PhaseFailed, res.Phase)
	assert.Empty(t, res.Import.FileName)
}
