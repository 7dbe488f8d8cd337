// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/trigon/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func newBuilder(c *qt.C) *kar.Builder {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { builder.Close() })
	return builder
}

func build(c *qt.C, files map[string]string) []byte {
	builder := newBuilder(c)
	for name, contents := range files {
		c.Assert(builder.Add(name, strings.NewReader(contents)), qt.IsNil)
	}
	buf := bytes.NewBuffer([]byte{})
	written, err := builder.WriteTo(buf)
	c.Assert(err, qt.IsNil)
	c.Assert(written, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	data := build(c, map[string]string{
		"test":  testString1,
		"test2": testString2,
	})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Header().Author, qt.Equals, "devblok")
	c.Assert(ar.List(), qt.HasLen, 2)

	f, err := ar.Open("test")
	c.Assert(err, qt.IsNil)
	c.Assert(f.Size(), qt.Equals, int64(len(testString1)))
	result, err := io.ReadAll(f)
	c.Assert(err, qt.IsNil)
	c.Assert(string(result), qt.Equals, testString1)

	result, err = ar.ReadAll("test2")
	c.Assert(err, qt.IsNil)
	c.Assert(string(result), qt.Equals, testString2)
}

func TestFindMissing(t *testing.T) {
	c := qt.New(t)
	ar, err := kar.Open(bytes.NewReader(build(c, map[string]string{"a": "b"})))
	c.Assert(err, qt.IsNil)

	_, err = ar.Find("nope")
	c.Assert(err, qt.ErrorIs, kar.ErrNotFound)
}

func TestEmptyFile(t *testing.T) {
	c := qt.New(t)
	ar, err := kar.Open(bytes.NewReader(build(c, map[string]string{"empty": ""})))
	c.Assert(err, qt.IsNil)

	result, err := ar.ReadAll("empty")
	c.Assert(err, qt.IsNil)
	c.Assert(result, qt.HasLen, 0)
}

func TestDuplicateName(t *testing.T) {
	c := qt.New(t)
	builder := newBuilder(c)
	c.Assert(builder.Add("same", strings.NewReader("1")), qt.IsNil)
	c.Assert(builder.Add("same", strings.NewReader("2")), qt.IsNotNil)
}

func TestOpenNotKar(t *testing.T) {
	c := qt.New(t)
	for _, data := range [][]byte{
		nil,
		[]byte("TAR\x00"),
		[]byte("KAR\x00short"),
		append([]byte("KAR\x00\xff\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"), "garbage"...),
		// header lengths past the end of the data, or empty
		[]byte("KAR\x00\x00\x00\x00\x00\x00\x00\x00\x40\x00\x00\x00\x00\x00\x00\x00\x00"),
		[]byte("KAR\x00\xeb\xff\xff\xff\xff\xff\xff\x7f\x00\x00\x00\x00\x00\x00\x00\x00"),
		[]byte("KAR\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"),
	} {
		_, err := kar.Open(bytes.NewReader(data))
		c.Assert(err, qt.ErrorIs, kar.ErrFileFormat, qt.Commentf("data %q", data))
	}
}

func TestConcurrentAdd(t *testing.T) {
	c := qt.New(t)
	builder := newBuilder(c)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("file%d", i)
			c.Check(builder.Add(name, strings.NewReader(strings.Repeat(name, 100))), qt.IsNil)
		}(i)
	}
	wg.Wait()

	buf := bytes.NewBuffer([]byte{})
	_, err := builder.WriteTo(buf)
	c.Assert(err, qt.IsNil)

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)

	var rg sync.WaitGroup
	for i := 0; i < 8; i++ {
		rg.Add(1)
		go func(i int) {
			defer rg.Done()
			name := fmt.Sprintf("file%d", i)
			result, err := ar.ReadAll(name)
			c.Check(err, qt.IsNil)
			c.Check(string(result), qt.Equals, strings.Repeat(name, 100))
		}(i)
	}
	rg.Wait()
}

func BenchmarkReadAll(b *testing.B) {
	c := qt.New(b)
	data := build(c, map[string]string{"big": strings.Repeat(testString2, 1000)})
	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	b.ResetTimer()
	for idx := 0; idx < b.N; idx++ {
		if _, err := ar.ReadAll("big"); err != nil {
			b.Fatal(err)
		}
	}
}
