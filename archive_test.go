package afs

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/meigma/afs/internal/cursor"
	"github.com/meigma/afs/internal/testutil"
)

var testDate = [6]uint16{2001, 2, 3, 4, 5, 6}

func twoFiles() testutil.Builder {
	return testutil.Builder{
		Files: []testutil.File{
			{Name: "a.adx", Data: []byte("first file"), Date: testDate},
			{Name: "b.adx", Data: []byte("second"), Date: [6]uint16{1999, 12, 31, 23, 59, 59}},
		},
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		builder testutil.Builder
		want    Endianness
	}{
		{name: "little endian", builder: twoFiles(), want: LittleEndian},
		{name: "big endian", builder: func() testutil.Builder {
			b := twoFiles()
			b.BigEndian = true
			return b
		}(), want: BigEndian},
		{name: "locator padding", builder: func() testutil.Builder {
			b := twoFiles()
			b.Padding = 3
			return b
		}(), want: LittleEndian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, layout := tt.builder.Build()
			a, err := Parse(bytes.NewReader(data))
			require.NoError(t, err)

			assert.Equal(t, tt.want, a.Endianness())
			assert.Equal(t, uint32(2), a.FileCount())
			assert.Equal(t, 2, a.Len())
			assert.Equal(t, AttributeTable{Offset: layout.TableOffset, Size: layout.TableSize}, a.AttributeTable())
			assert.Empty(t, a.Path())

			tokens := a.Tokens()
			require.Len(t, tokens, 2)
			assert.Equal(t, layout.DataOffsets[0], tokens[0].Offset)
			assert.Equal(t, uint32(10), tokens[0].Size)
			assert.Equal(t, "a.adx", tokens[0].DisplayName())
			assert.Equal(t, uint32(10), *tokens[0].FileSize)
			assert.Equal(t, Timestamp{2001, 2, 3, 4, 5, 6}, *tokens[0].Timestamp)
			assert.Equal(t, "b.adx", tokens[1].DisplayName())
			assert.Equal(t, Timestamp{1999, 12, 31, 23, 59, 59}, *tokens[1].Timestamp)

			buf := make([]byte, 6)
			_, err = a.Section(1).ReadAt(buf, 0)
			require.NoError(t, err)
			assert.Equal(t, "second", string(buf))
		})
	}
}

func TestParse_NoFiles(t *testing.T) {
	t.Parallel()

	a, err := Parse(bytes.NewReader(testutil.Builder{}.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, uint32(0), a.AttributeTable().Size)
	assert.Empty(t, a.FileNames())
}

func TestParse_AttributeSizeMayDiffer(t *testing.T) {
	t.Parallel()

	b := twoFiles()
	b.Files[0].AttributeSize = testutil.Uint32(4096)

	a, err := Parse(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint32(10), a.Token(0).Size)
	assert.Equal(t, uint32(4096), *a.Token(0).FileSize)
}

func TestParse_BadSignature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "wrong magic", data: func() []byte {
			b := twoFiles()
			b.Signature = []byte("XYZ\x00")
			return b.Bytes()
		}()},
		{name: "little magic reversed wrongly", data: func() []byte {
			b := twoFiles()
			b.Signature = []byte("SFA\x00")
			return b.Bytes()
		}()},
		{name: "short source", data: []byte("AF")},
		{name: "empty source", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := testutil.NewMockByteSource(tt.data)
			_, err := Parse(src)
			require.Error(t, err)
			assert.True(t, ErrBadSignature.Is(err), "got %v", err)
			assert.LessOrEqual(t, src.BytesRead(), int64(4), "nothing past the signature is read")
		})
	}
}

func TestParse_Truncated(t *testing.T) {
	t.Parallel()

	full := twoFiles().Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "no file count", data: full[:6]},
		{name: "token table cut", data: full[:12]},
		{name: "attribute table cut", data: full[:len(full)-10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, ErrTruncated.Is(err), "got %v", err)
		})
	}
}

func TestParse_MissingAttributeTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		builder testutil.Builder
	}{
		{name: "with files", builder: func() testutil.Builder {
			b := twoFiles()
			b.OmitAttributeTable = true
			return b
		}()},
		{name: "without files", builder: testutil.Builder{OmitAttributeTable: true}},
		{name: "padding only", builder: func() testutil.Builder {
			b := twoFiles()
			b.Padding = 4
			b.OmitAttributeTable = true
			return b
		}()},
		{name: "first token offset inside token table", builder: testutil.Builder{Files: []testutil.File{
			{Name: "a.adx", Data: []byte("data"), TokenOffset: testutil.Uint32(headerSize)},
		}}},
		{name: "locator pair ends at first token offset", builder: testutil.Builder{Files: []testutil.File{
			{Name: "a.adx", Data: []byte("data"), TokenOffset: testutil.Uint32(headerSize + 2*tokenEntrySize)},
		}}},
		{name: "padding runs into first token offset", builder: func() testutil.Builder {
			b := twoFiles()
			b.Padding = 2
			b.Files[0].TokenOffset = testutil.Uint32(headerSize + 3*tokenEntrySize)
			return b
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(bytes.NewReader(tt.builder.Bytes()))
			require.Error(t, err)
			assert.True(t, ErrMissingAttributeTable.Is(err), "got %v", err)
		})
	}
}

func TestParse_LocatorBeforeFirstToken(t *testing.T) {
	t.Parallel()

	// One byte past the locator pair is enough.
	b := testutil.Builder{Files: []testutil.File{
		{Name: "a.adx", Data: []byte("data"), TokenOffset: testutil.Uint32(headerSize + 2*tokenEntrySize + 1)},
	}}
	_, layout := b.Build()

	a, err := Parse(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, layout.TableOffset, a.AttributeTable().Offset)
}

func TestParse_IncompleteTable(t *testing.T) {
	t.Parallel()

	for _, delta := range []int{-1, 4, attributeEntrySize} {
		b := twoFiles()
		b.TableSizeDelta = delta

		_, err := Parse(bytes.NewReader(b.Bytes()))
		require.Error(t, err, "delta %d", delta)
		assert.True(t, ErrIncompleteTable.Is(err), "delta %d: got %v", delta, err)
	}
}

func TestParse_Decoding(t *testing.T) {
	t.Parallel()

	b := twoFiles()
	b.Files[1].NameBytes = []byte{'o', 'k', 0xff, 0xfe}

	_, err := Parse(bytes.NewReader(b.Bytes()))
	require.Error(t, err)
	assert.True(t, ErrDecoding.Is(err), "got %v", err)
	assert.Contains(t, err.Error(), "file 1")
}

func TestParse_NameEncoding(t *testing.T) {
	t.Parallel()

	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("テスト.adx"))
	require.NoError(t, err)

	b := twoFiles()
	b.Files[0].NameBytes = sjis
	data := b.Bytes()

	_, err = Parse(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, ErrDecoding.Is(err), "Shift JIS is not UTF-8: got %v", err)

	enc, err := LookupEncoding("Shift_JIS")
	require.NoError(t, err)
	require.NotNil(t, enc)

	a, err := Parse(bytes.NewReader(data), WithNameEncoding(enc))
	require.NoError(t, err)
	assert.Equal(t, "テスト.adx", a.Token(0).DisplayName())
	assert.Equal(t, "b.adx", a.Token(1).DisplayName())
}

func TestLookupEncoding(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "UTF-8", "utf8"} {
		enc, err := LookupEncoding(name)
		require.NoError(t, err)
		assert.Nil(t, enc, name)
	}

	_, err := LookupEncoding("no-such-charset")
	require.Error(t, err)
}

func TestParse_NamePaddingTrimmed(t *testing.T) {
	t.Parallel()

	b := twoFiles()
	b.Files[0].NameBytes = []byte("\x00\x00pad.adx")

	a, err := Parse(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "pad.adx", a.Token(0).DisplayName())
}

func TestLocateAttributeTable_Misaligned(t *testing.T) {
	t.Parallel()

	data := twoFiles().Bytes()
	c := cursor.New(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, c.Seek(headerSize+tokenEntrySize))

	_, _, err := locateAttributeTable(c, make([]Token, 2))
	require.Error(t, err)
	assert.True(t, ErrMisaligned.Is(err), "got %v", err)
}

func TestLocateAttributeTable_SkippedBytes(t *testing.T) {
	t.Parallel()

	data, layout := twoFiles().Build()
	c := cursor.New(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, c.Seek(4))
	tokens, err := readTokenTable(c)
	require.NoError(t, err)

	table, skipped, err := locateAttributeTable(c, tokens)
	require.NoError(t, err)
	assert.Equal(t, layout.TableOffset, table.Offset)
	assert.Equal(t, int64(layout.TableOffset)-int64(headerSize+3*tokenEntrySize), skipped)
	assert.Equal(t, int64(layout.TableOffset), c.Pos())
}

func TestReadTokenTable_CountExceedsSource(t *testing.T) {
	t.Parallel()

	data := []byte("AFS\x00\xff\xff\xff\x00")
	c := cursor.New(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, c.Seek(4))

	_, err := readTokenTable(c)
	require.Error(t, err)
	assert.True(t, ErrTruncated.Is(err), "got %v", err)
}

func TestFileNames_Unnamed(t *testing.T) {
	t.Parallel()

	b := testutil.Builder{Files: []testutil.File{
		{Data: []byte("x")},
		{Name: "named.bin", Data: []byte("y")},
		{Data: []byte("z")},
	}}
	a, err := Parse(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, []string{"NO_NAME_0", "named.bin", "NO_NAME_1"}, a.FileNames())
	assert.False(t, a.Token(0).HasName())
	assert.True(t, a.Token(1).HasName())
}

func TestParse_Progress(t *testing.T) {
	t.Parallel()

	var events []ProgressEvent
	_, err := Parse(bytes.NewReader(twoFiles().Bytes()), WithProgress(func(ev ProgressEvent) {
		events = append(events, ev)
	}))
	require.NoError(t, err)

	stages := make([]ProgressStage, 0, len(events))
	for _, ev := range events {
		stages = append(stages, ev.Stage)
	}
	assert.Equal(t, []ProgressStage{
		StageSignatureChecked,
		StageTokensRead,
		StageAttributeTableLocated,
		StageAttributesRead,
		StageReady,
	}, stages)
	assert.Equal(t, int64(4), events[0].Offset)
	assert.Equal(t, 0, events[0].FilesTotal)
	assert.Equal(t, 2, events[len(events)-1].FilesTotal)
}

func TestParse_LogsStages(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := Parse(bytes.NewReader(twoFiles().Bytes()), WithLogger(logger))
	require.NoError(t, err)

	var infos []string
	debugs := 0
	for _, e := range hook.AllEntries() {
		switch e.Level {
		case logrus.InfoLevel:
			infos = append(infos, e.Message)
		case logrus.DebugLevel:
			debugs++
		}
	}
	assert.Equal(t, []string{
		"signature checked",
		"tokens read",
		"attribute table located",
		"attributes read",
		"ready",
	}, infos)
	assert.Equal(t, 2, debugs, "one record per file")
	assert.Equal(t, "little-endian", hook.AllEntries()[0].Data["byte_order"])
}

func TestTimestamp_Time(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ts      Timestamp
		wantErr bool
	}{
		{name: "valid", ts: Timestamp{2001, 2, 3, 4, 5, 6}},
		{name: "leap day", ts: Timestamp{2000, 2, 29, 0, 0, 0}},
		{name: "not a leap year", ts: Timestamp{1900, 2, 29, 0, 0, 0}, wantErr: true},
		{name: "month 13", ts: Timestamp{2001, 13, 1, 0, 0, 0}, wantErr: true},
		{name: "month 0", ts: Timestamp{2001, 0, 1, 0, 0, 0}, wantErr: true},
		{name: "day 0", ts: Timestamp{2001, 1, 0, 0, 0, 0}, wantErr: true},
		{name: "april 31", ts: Timestamp{2001, 4, 31, 0, 0, 0}, wantErr: true},
		{name: "hour 24", ts: Timestamp{2001, 1, 1, 24, 0, 0}, wantErr: true},
		{name: "second 60", ts: Timestamp{2001, 1, 1, 0, 0, 60}, wantErr: true},
		{name: "year 0", ts: Timestamp{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.ts.Time(time.UTC)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ErrInvalidTimestamp.Is(err))
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ts.String(), got.Format("2006-01-02 15:04:05"))
		})
	}
}

func TestEndianness_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "little-endian", LittleEndian.String())
	assert.Equal(t, "big-endian", BigEndian.String())
	assert.Equal(t, "unknown", Endianness(7).String())
}
