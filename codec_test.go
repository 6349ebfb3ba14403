package gbin

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Mocks and Helpers ---

// A simple fixed-size struct for testing codec implementations.
type mockPayload struct {
	ID   uint32
	Data [4]byte
}

// mockCodec wraps mockPayload as a Codec.
type mockCodec = Value[mockPayload]

// mockFlushingWriter helps verify that a writer's Flush method is called.
type mockFlushingWriter struct {
	bytes.Buffer
	flushed bool
}

func (m *mockFlushingWriter) Flush() error {
	m.flushed = true
	return nil
}

func unsafePointer[E any](s []E) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(s))
}

// --- Writer Test Suite ---

type WriterTestSuite struct {
	suite.Suite
	buf    *bytes.Buffer
	writer *Writer
}

// SetupTest runs before each test in the suite, ensuring a clean state.
func (s *WriterTestSuite) SetupTest() {
	s.buf = &bytes.Buffer{}
	s.writer, _ = NewWriter(s.buf)
	s.writer.WithByteOrder(LE)
}

func (s *WriterTestSuite) TestConstructors() {
	s.T().Run("NilWriter", func(t *testing.T) {
		_, err := NewWriter(nil)
		assert.ErrorIs(t, err, ErrNilIO)
	})

	s.T().Run("AlreadyBuffered", func(t *testing.T) {
		_, err := NewWriterSize(bufio.NewWriterSize(io.Discard, 16), 4096)
		assert.ErrorIs(t, err, ErrAlreadyBuffered)
	})
}

func (s *WriterTestSuite) TestBasicWrites() {
	codec := &mockCodec{V: mockPayload{ID: 0xDEADBEEF, Data: [4]byte{1, 2, 3, 4}}}

	s.writer.WriteUint8(0xAA)
	s.writer.WriteUint16(0xBBCC)
	s.writer.WriteUint32(0xDDEEFF00)
	s.writer.WriteUint64(0x0102030405060708)
	s.writer.WriteBytes([]byte{5, 6, 7})
	s.writer.WriteZeros(2)
	s.writer.WriteCount(3)

	n, err := s.writer.Result()
	s.Require().NoError(err)
	s.Assert().EqualValues(1+2+4+8+3+2+4, n)
	s.Assert().EqualValues(s.buf.Len(), s.writer.Count())

	expected := []byte{
		0xAA,       // WriteUint8
		0xCC, 0xBB, // WriteUint16 (Little Endian)
		0x00, 0xFF, 0xEE, 0xDD, // WriteUint32 (Little Endian)
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // WriteUint64 (Little Endian)
		5, 6, 7, // WriteBytes
		0, 0, // WriteZeros
		3, 0, 0, 0, // WriteCount
	}
	s.Assert().Equal(expected, s.buf.Bytes())

	// WriteFrom appends whatever a codec produces.
	s.buf.Reset()
	w, _ := NewWriter(s.buf)
	w.WriteFrom(codec)
	_, err = w.Result()
	s.Require().NoError(err)
	s.Assert().Equal(8, s.buf.Len())
}

func (s *WriterTestSuite) TestCountPrefixIsAlwaysLittleEndian() {
	s.writer.WithByteOrder(BE)
	s.writer.WriteCount(0x01020304)
	s.writer.WriteUint32(0x01020304)
	_, err := s.writer.Result()
	s.Require().NoError(err)
	s.Assert().Equal([]byte{4, 3, 2, 1, 1, 2, 3, 4}, s.buf.Bytes())
}

func (s *WriterTestSuite) TestAlign() {
	s.writer.WriteUint8(1)
	s.writer.Align(4)
	s.writer.WriteUint8(2)
	s.writer.Align(1)
	_, err := s.writer.Result()
	s.Require().NoError(err)
	s.Assert().Equal([]byte{1, 0, 0, 0, 2}, s.buf.Bytes())
}

func (s *WriterTestSuite) TestErrorHandling() {
	s.T().Run("ShortBufferError", func(t *testing.T) {
		// Use a fixed-size buffer to reliably trigger ErrShortWrite.
		fixedBuf := make([]byte, 5)
		writer, _ := NewWriter(NewBytesWriter(fixedBuf))

		writer.WriteUint32(0x11223344)
		writer.WriteUint32(0xAABBCCDD)

		_, err := writer.Result()
		require.Error(t, err)
		assert.ErrorIs(t, err, io.ErrShortWrite)
	})

	s.T().Run("WriteAfterErrorIsNoOp", func(t *testing.T) {
		fixedBuf := make([]byte, 5)
		writer, _ := NewWriter(NewBytesWriter(fixedBuf))
		writer.WithByteOrder(LE)

		writer.WriteUint32(0x11223344)
		writer.WriteUint32(0xAABBCCDD) // Only one byte fits.

		firstErr := writer.Err()
		require.ErrorIs(t, firstErr, io.ErrShortWrite)

		// This subsequent write should be a no-op because an error state is set.
		writer.WriteUint8(0xFF)
		writer.Flush()

		assert.Equal(t, firstErr, writer.Err(), "The latched error should not change")
		assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11, 0xDD}, fixedBuf)
		assert.EqualValues(t, 5, writer.Count())
	})

	s.T().Run("PaddingIntoFixedBuffer", func(t *testing.T) {
		fixedBuf := []byte{9, 9, 9, 9, 9, 9}
		writer, _ := NewWriter(NewBytesWriter(fixedBuf))
		writer.WriteUint8(1)
		writer.Align(4)
		require.NoError(t, writer.Err())

		writer.WriteZeros(4) // Only two bytes fit.
		assert.ErrorIs(t, writer.Err(), io.ErrShortWrite)
		assert.EqualValues(t, 6, writer.Count())
		assert.Equal(t, []byte{1, 0, 0, 0, 0, 0}, fixedBuf, "padding must clear stale bytes")
	})
}

func (s *WriterTestSuite) TestFlush() {
	// mockFlushingWriter is not a *bytes.Buffer, so it gets a bufio layer.
	mock := &mockFlushingWriter{}
	writer, _ := NewWriterSize(mock, 128)
	writer.WriteUint8(0xAA)

	// Before flush, data is in the buffer, but not in the underlying writer.
	s.Assert().True(writer.w.(*bufioWriterAdapter).Buffered() > 0)
	s.Assert().Zero(mock.Len())

	nested, _ := NewWriter(writer)
	nested.WriteUint8(0xBB)
	s.Require().NoError(nested.Flush())
	s.Assert().Zero(mock.Len(), "only the outermost writer flushes")

	s.Require().NoError(writer.Flush())
	s.Assert().False(mock.flushed, "bufio flushes by writing, not by calling Flush")
	s.Assert().Zero(writer.w.(*bufioWriterAdapter).Buffered())
	s.Assert().Equal([]byte{0xAA, 0xBB}, mock.Buffer.Bytes())
}

// TestWriter runs the WriterTestSuite.
func TestWriter(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

// --- Reader Test Suite ---

type ReaderTestSuite struct {
	suite.Suite
}

func (s *ReaderTestSuite) TestConstructors() {
	s.T().Run("NilReader", func(t *testing.T) {
		_, err := NewReader(nil)
		assert.ErrorIs(t, err, ErrNilIO)
	})

	s.T().Run("SizeTooSmall", func(t *testing.T) {
		_, err := NewReaderSize(io.LimitReader(bytes.NewReader(nil), 0), 8)
		assert.ErrorIs(t, err, ErrSizeTooSmall)
	})
}

func (s *ReaderTestSuite) TestSuccessfulReads() {
	data := []byte{
		0xAA,       // uint8
		0xCC, 0xBB, // uint16
		0x00, 0xFF, 0xEE, 0xDD, // uint32
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // uint64
		0x11, 0x22, 0x33, // raw bytes
	}
	r, _ := NewReader(bytes.NewReader(data))
	r.WithByteOrder(LE)

	var v8 uint8
	var v16 uint16
	var v32 uint32
	var v64 uint64
	r.ReadUint8(&v8)
	r.ReadUint16(&v16)
	r.ReadUint32(&v32)
	r.ReadUint64(&v64)
	read := r.ReadBytes(3)

	s.Require().NoError(r.Err())
	s.Assert().Equal(uint8(0xAA), v8)
	s.Assert().Equal(uint16(0xBBCC), v16)
	s.Assert().Equal(uint32(0xDDEEFF00), v32)
	s.Assert().Equal(uint64(0x0102030405060708), v64)
	s.Assert().Equal([]byte{0x11, 0x22, 0x33}, read)
	s.Assert().EqualValues(len(data), r.Count())

	// The next read should result in a clean EOF.
	r.Read(make([]byte, 1))
	s.Assert().ErrorIs(r.Err(), io.EOF)
	s.Assert().True(r.IsEOF())
}

func (s *ReaderTestSuite) TestSignedFloatAndBool() {
	for _, order := range []binary.ByteOrder{LE, BE} {
		var buf bytes.Buffer
		w, err := NewWriter(&buf)
		s.Require().NoError(err)
		w.WithByteOrder(order)
		w.WriteBool(true)
		w.WriteBool(false)
		w.WriteInt8(-2)
		w.WriteInt16(-300)
		w.WriteInt32(-70000)
		w.WriteInt64(math.MinInt64 + 1)
		w.WriteFloat32(-1.5)
		w.WriteFloat64(math.Pi)
		n, err := w.Result()
		s.Require().NoError(err)
		s.Require().EqualValues(2+1+2+4+8+4+8, n)

		r, err := NewReader(bytes.NewReader(buf.Bytes()))
		s.Require().NoError(err)
		r.WithByteOrder(order)
		var (
			t, f bool
			i8   int8
			i16  int16
			i32  int32
			i64  int64
			f32  float32
			f64  float64
		)
		r.ReadBool(&t)
		r.ReadBool(&f)
		r.ReadInt8(&i8)
		r.ReadInt16(&i16)
		r.ReadInt32(&i32)
		r.ReadInt64(&i64)
		r.ReadFloat32(&f32)
		r.ReadFloat64(&f64)
		s.Require().NoError(r.Err(), "%v", order)
		s.Assert().True(t)
		s.Assert().False(f)
		s.Assert().Equal(int8(-2), i8)
		s.Assert().Equal(int16(-300), i16)
		s.Assert().Equal(int32(-70000), i32)
		s.Assert().Equal(int64(math.MinInt64+1), i64)
		s.Assert().Equal(float32(-1.5), f32)
		s.Assert().Equal(math.Pi, f64)

		// A failed read leaves the destination untouched.
		i32 = 7
		r.ReadInt32(&i32)
		s.Assert().Equal(int32(7), i32)
		s.Assert().ErrorIs(r.Err(), io.EOF)
	}
}

func (s *ReaderTestSuite) TestErrorHandling() {
	s.T().Run("ReadPastEOF", func(t *testing.T) {
		data := []byte{0x01, 0x02, 0x03}
		r, _ := NewReader(bytes.NewReader(data))
		var v32 uint32
		r.ReadUint32(&v32) // Attempt to read 4 bytes from a 3-byte source.

		require.Error(t, r.Err())
		assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
		assert.False(t, r.IsEOF(), "ErrUnexpectedEOF should not be considered a clean EOF")
	})

	s.T().Run("ReadAfterErrorIsNoOp", func(t *testing.T) {
		data := []byte{0x01, 0x02, 0x03}
		r, _ := NewReader(bytes.NewReader(data))
		var v32 uint32
		var v8 uint8

		r.ReadUint32(&v32) // This will trigger and latch the error.
		firstErr := r.Err()
		require.Error(t, firstErr)

		r.ReadUint8(&v8) // This read should not happen.
		assert.Equal(t, firstErr, r.Err(), "The latched error should not change")
		assert.Equal(t, uint8(0), v8, "Destination variable should be unchanged after an error")
	})

	s.T().Run("NextReportsTruncation", func(t *testing.T) {
		r, _ := NewReader(bytes.NewBuffer([]byte{1, 2}))
		_, err := r.Next(4)
		assert.ErrorIs(t, err, ErrTruncatedData)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func (s *ReaderTestSuite) TestReadCountAndAlign() {
	r, _ := NewReader(bytes.NewBuffer([]byte{0xAA, 0, 0, 0, 2, 0, 0, 0}))
	var b uint8
	r.ReadUint8(&b)
	r.Align(4)
	n, err := r.ReadCount()
	s.Require().NoError(err)
	s.Assert().Equal(2, n)
	s.Assert().EqualValues(8, r.Count())
}

func (s *ReaderTestSuite) TestInterfaceMethods() {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	r, _ := NewReader(bytes.NewReader(data))

	s.T().Run("WriteTo", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := r.WriteTo(&buf)
		require.NoError(t, err)
		assert.EqualValues(t, len(data), n)
		assert.Equal(t, data, buf.Bytes())
	})

	s.T().Run("WriteToNilWriter", func(t *testing.T) {
		r, _ := NewReader(bytes.NewReader(data))
		_, err := r.WriteTo(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWriteToNil)
	})
}

// TestReader runs the ReaderTestSuite.
func TestReader(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}

// --- Span Test Suite ---

type SpanTestSuite struct {
	suite.Suite
}

func (s *SpanTestSuite) TestNextAliases() {
	data := []byte{1, 2, 3, 4, 5, 6}
	span := NewBytesReader(data)

	b, err := span.Next(4)
	s.Require().NoError(err)
	s.Assert().Equal([]byte{1, 2, 3, 4}, b)
	s.Assert().Equal(4, cap(b), "capacity is clamped to the requested length")
	s.Assert().Same(&data[0], &b[0])
	s.Assert().True(span.Contains(unsafePointer(b)))
	s.Assert().Equal(2, span.Available())
}

func (s *SpanTestSuite) TestNextPastEnd() {
	span := NewBytesReader([]byte{1, 2})
	_, err := span.Next(3)
	s.Assert().ErrorIs(err, ErrTruncatedData)
	s.Assert().Equal(0, span.Len(), "a failed read does not move the cursor")
}

func (s *SpanTestSuite) TestAlignIsRelativeToSpanStart() {
	span := NewBytesReader(make([]byte, 10))
	_, _ = span.Next(1)
	span.Align(8)
	s.Assert().Equal(8, span.Len())
	span.Align(16)
	s.Assert().Equal(10, span.Len(), "alignment never moves past the end")
}

func (s *SpanTestSuite) TestSeek() {
	span := NewBytesReader(make([]byte, 10))
	pos, err := span.Seek(-2, io.SeekEnd)
	s.Require().NoError(err)
	s.Assert().EqualValues(8, pos)

	_, err = span.Seek(-20, io.SeekCurrent)
	s.Assert().ErrorIs(err, ErrInvalidSeek)
	_, err = span.Seek(0, 42)
	s.Assert().ErrorIs(err, ErrInvalidWhence)
}

func TestSpan(t *testing.T) {
	suite.Run(t, new(SpanTestSuite))
}

// --- Standalone Codec Tests ---

func TestValueCodec_Errors(t *testing.T) {
	t.Run("MarshalToShortBuffer", func(t *testing.T) {
		c := &mockCodec{}
		shortBuf := make([]byte, c.Size()-1)
		_, err := c.MarshalTo(shortBuf)
		assert.ErrorIs(t, err, io.ErrShortWrite)
	})

	t.Run("UnmarshalWithTruncatedData", func(t *testing.T) {
		c := &mockCodec{}
		validData, _ := c.MarshalBinary()
		truncatedData := validData[:len(validData)-1]

		err := c.UnmarshalBinary(truncatedData)
		assert.ErrorIs(t, err, ErrTruncatedData)
	})

	t.Run("UnmarshalWithTrailingData", func(t *testing.T) {
		c := &mockCodec{}
		validData, _ := c.MarshalBinary()
		trailingData := append(validData, 0x01, 0x02, 0x03) // Append non-zero bytes

		err := c.UnmarshalBinary(trailingData)
		require.ErrorIs(t, err, ErrTrailingData)
		assert.Contains(t, err.Error(), "non-zero byte")
	})

	t.Run("UnmarshalWithZeroPadding", func(t *testing.T) {
		c := &mockCodec{V: mockPayload{ID: 7}}
		validData, _ := c.MarshalBinary()

		var out mockCodec
		require.NoError(t, out.UnmarshalBinary(append(validData, 0, 0, 0)))
		assert.Equal(t, c.V, out.V)
	})
}

func TestValueCodec_Streams(t *testing.T) {
	in := &mockCodec{V: mockPayload{ID: 0xCAFE, Data: [4]byte{9, 8, 7, 6}}}
	assert.Equal(t, 8, in.Size())

	var buf bytes.Buffer
	n, err := in.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)

	// Two values back to back: a buffered reader is consumed exactly.
	_, err = in.WriteTo(&buf)
	require.NoError(t, err)
	br := bufio.NewReader(&buf)

	var first, second mockCodec
	n, err = first.ReadFrom(br)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
	_, err = second.ReadFrom(br)
	require.NoError(t, err)
	assert.Equal(t, in.V, first.V)
	assert.Equal(t, in.V, second.V)
}

func TestReadFrom_PlainReader(t *testing.T) {
	data, err := Marshal(&mockPayload{ID: 3})
	require.NoError(t, err)

	var out mockPayload
	n, err := ReadFrom(io.MultiReader(bytes.NewReader(data), bytes.NewReader([]byte{0, 0})), &out)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), n)
	assert.EqualValues(t, 3, out.ID)

	_, err = ReadFrom(io.MultiReader(bytes.NewReader(data), bytes.NewReader([]byte{0, 1})), &out)
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = ReadFrom(io.MultiReader(bytes.NewReader(data[:5])), &out)
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestValueCodec_UnsupportedSize(t *testing.T) {
	c := &Value[map[string]int]{}
	assert.Equal(t, -1, c.Size())
	_, err := c.MarshalBinary()
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
