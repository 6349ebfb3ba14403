package mmap

import (
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MappingTestSuite struct {
	suite.Suite
	dir  string
	path string
	data []byte
}

func (s *MappingTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.path = filepath.Join(s.dir, "data.bin")
	s.data = make([]byte, 100)
	for i := range s.data {
		s.data[i] = byte(i * 7)
	}
	s.Require().NoError(os.WriteFile(s.path, s.data, 0o644))
}

func TestMapping(t *testing.T) {
	suite.Run(t, new(MappingTestSuite))
}

func (s *MappingTestSuite) backends() map[string]Backend {
	b := map[string]Backend{"heap": BackendHeap}
	if defaultBackend == BackendOS {
		b["os"] = BackendOS
	}
	return b
}

func (s *MappingTestSuite) TestSubRangeMatchesSequentialRead() {
	f, err := os.Open(s.path)
	s.Require().NoError(err)
	defer f.Close()
	want := make([]byte, 10)
	_, err = f.ReadAt(want, 10)
	s.Require().NoError(err)

	for name, backend := range s.backends() {
		s.Run(name, func() {
			m, err := Open(s.path, WithRange(10, 10), WithBackend(backend))
			s.Require().NoError(err)
			defer m.Close()

			s.Assert().Equal(10, m.Len())
			s.Assert().Equal(want, m.Bytes())
			s.Assert().Equal(backend, m.Backend())
			s.Assert().EqualValues(10, m.Offset())
			s.Assert().False(m.Writable())
		})
	}
}

func (s *MappingTestSuite) TestUnalignedOffsetInLargeFile() {
	big := make([]byte, 3*os.Getpagesize()+123)
	for i := range big {
		big[i] = byte(i % 251)
	}
	path := filepath.Join(s.dir, "big.bin")
	s.Require().NoError(os.WriteFile(path, big, 0o644))

	start := uint64(os.Getpagesize() + 17)
	m, err := Open(path, WithRange(start, ToEnd))
	s.Require().NoError(err)
	defer m.Close()
	s.Assert().Equal(big[start:], m.Bytes())
}

func (s *MappingTestSuite) TestWriteFlushPersists() {
	if defaultBackend != BackendOS {
		s.T().Skip("no OS mapping on this platform")
	}
	m, err := Open(s.path, Writable(), WithRange(50, ToEnd))
	s.Require().NoError(err)
	s.Require().True(m.Writable())

	m.Bytes()[3] = 0xEE
	s.Require().NoError(m.Flush())
	s.Require().NoError(m.Close())

	got, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Assert().Equal(byte(0xEE), got[53])
	s.Assert().Equal(s.data[:53], got[:53])
}

func (s *MappingTestSuite) TestHeapWritesAreNotPersisted() {
	m, err := Open(s.path, Writable(), WithBackend(BackendHeap))
	s.Require().NoError(err)
	m.Bytes()[0] = 0xEE
	s.Require().NoError(m.Flush())
	s.Require().NoError(m.Close())

	got, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Assert().Equal(s.data, got)
}

func (s *MappingTestSuite) TestCloseIsIdempotent() {
	m, err := Open(s.path)
	s.Require().NoError(err)
	s.Require().False(m.IsEmpty())

	s.Assert().NoError(m.Close())
	s.Assert().True(m.IsEmpty())
	s.Assert().Nil(m.Bytes())
	s.Assert().NoError(m.Close())

	var zero Mapping
	s.Assert().NoError(zero.Close())
	var nilMapping *Mapping
	s.Assert().True(nilMapping.IsEmpty())
}

func (s *MappingTestSuite) TestFlush() {
	m, err := Open(s.path)
	s.Require().NoError(err)
	s.Assert().NoError(m.Flush(), "flushing a read-only mapping is a no-op")
	s.Require().NoError(m.Close())
	s.Assert().ErrorIs(m.Flush(), ErrClosed)
}

func (s *MappingTestSuite) TestMove() {
	m, err := Open(s.path, WithRange(20, 5))
	s.Require().NoError(err)

	moved := m.Move()
	s.Assert().True(m.IsEmpty())
	s.Assert().Zero(m.Len())
	s.Require().False(moved.IsEmpty())
	s.Assert().Equal(s.data[20:25], moved.Bytes())
	s.Assert().Equal(s.path, moved.Path())

	s.Assert().NoError(m.Close())
	s.Assert().NoError(moved.Close())
	s.Assert().True(m.Move().IsEmpty())
}

func (s *MappingTestSuite) TestRangeValidation() {
	cases := []struct {
		name         string
		start, count uint64
	}{
		{"StartBeyondEnd", 101, ToEnd},
		{"StartAtEnd", 100, ToEnd},
		{"CountBeyondEnd", 90, 11},
		{"ZeroCount", 0, 0},
		{"Overflow", 10, ToEnd - 5},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			m, err := Open(s.path, WithRange(tc.start, tc.count))
			s.Require().ErrorIs(err, ErrInvalidRange)
			s.Assert().NotNil(m)
			s.Assert().True(m.IsEmpty())
			s.Assert().NoError(m.Close())

			var mErr *Error
			s.Require().ErrorAs(err, &mErr)
			s.Assert().Equal(s.path, mErr.Path)
		})
	}

	for _, k := range []uint64{0, 1, 57, 99} {
		m, err := Open(s.path, WithRange(k, ToEnd))
		s.Require().NoError(err)
		s.Assert().Equal(int(100-k), m.Len())
		s.Assert().NoError(m.Close())
	}
}

func (s *MappingTestSuite) TestOpenFailures() {
	s.Run("Missing", func() {
		m, err := Open(filepath.Join(s.dir, "missing.bin"))
		s.Assert().ErrorIs(err, fs.ErrNotExist)
		s.Assert().True(m.IsEmpty())
	})

	s.Run("Empty", func() {
		path := filepath.Join(s.dir, "empty.bin")
		s.Require().NoError(os.WriteFile(path, nil, 0o644))
		_, err := Open(path)
		s.Assert().ErrorIs(err, ErrEmptyFile)
	})

	s.Run("WritableCreatesMissing", func() {
		path := filepath.Join(s.dir, "created.bin")
		_, err := Open(path, Writable())
		s.Assert().ErrorIs(err, ErrEmptyFile)
		s.Assert().FileExists(path)
	})

	s.Run("Directory", func() {
		_, err := Open(s.dir)
		s.Assert().Error(err)
	})
}

func (s *MappingTestSuite) TestRelativePath() {
	wd, err := os.Getwd()
	s.Require().NoError(err)
	s.Require().NoError(os.Chdir(s.dir))
	defer os.Chdir(wd)

	m, err := Open("data.bin")
	s.Require().NoError(err)
	defer m.Close()
	s.Assert().True(filepath.IsAbs(m.Path()))
	s.Assert().Equal(s.data, m.Bytes())
}

func (s *MappingTestSuite) TestReadAt() {
	m, err := Open(s.path, WithRange(90, ToEnd))
	s.Require().NoError(err)
	defer m.Close()

	p := make([]byte, 4)
	n, err := m.ReadAt(p, 2)
	s.Require().NoError(err)
	s.Assert().Equal(4, n)
	s.Assert().Equal(s.data[92:96], p)

	n, err = m.ReadAt(p, 8)
	s.Assert().ErrorIs(err, io.EOF)
	s.Assert().Equal(2, n)

	_, err = m.ReadAt(p, 10)
	s.Assert().ErrorIs(err, io.EOF)
}

func TestReporter(t *testing.T) {
	var messages, locations []string
	r := ReporterFunc(func(message, location string) {
		messages = append(messages, message)
		locations = append(locations, location)
	})

	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	m, err := Open(path, WithRange(2, 5), WithReporter(r))
	require.Error(t, err)
	assert.True(t, m.IsEmpty())
	require.Len(t, messages, 1)
	assert.Equal(t, err.Error(), messages[0])
	assert.Contains(t, messages[0], "invalid range")
	assert.Contains(t, locations[0], "mapping.go:")

	m, err = Open(path, WithReporter(r))
	require.NoError(t, err)
	require.NoError(t, m.Close())
	assert.Len(t, messages, 1, "success reports nothing")
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := Open(filepath.Join(t.TempDir(), "nope.bin"), WithReporter(LogReporter(logger)))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "location=mapping.go:")
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Op: "mmap", Path: "/tmp/x", Err: ErrInvalidRange}
	assert.Equal(t, "mmap: mmap /tmp/x: mmap: invalid range", err.Error())
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Equal(t, "heap", BackendHeap.String())
	assert.Equal(t, "Backend(9)", Backend(9).String())
}
