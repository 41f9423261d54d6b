package iohelpers

import (
	"bytes"
	"io"
	"testing"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatRaw, false},
		{"raw", FormatRaw, false},
		{"uncompressed", FormatRaw, false},
		{"gz", FormatGzip, false},
		{"GZIP", FormatGzip, false},
		{"zst", FormatZstd, false},
		{" zstd ", FormatZstd, false},
		{"none", FormatNone, false},
		{"bogus", FormatNone, true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDefaultSuffixHasNoLeadingDot(t *testing.T) {
	cases := []struct {
		f    Format
		want string
	}{
		{FormatRaw, "fq"},
		{FormatGzip, "fq.gz"},
		{FormatZstd, "fq.zst"},
		{FormatNone, ""},
	}
	for _, tc := range cases {
		if got := tc.f.DefaultSuffix(); got != tc.want {
			t.Errorf("Format(%d).DefaultSuffix() = %q, want %q", tc.f, got, tc.want)
		}
		if len(tc.want) > 0 && tc.want[0] == '.' {
			t.Errorf("DefaultSuffix() must not carry a leading dot: %q", tc.want)
		}
	}
}

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCompressWriter(FormatGzip, &buf, 0)
	if err != nil {
		t.Fatalf("NewCompressWriter: %v", err)
	}
	want := []byte("@r\nACGT\n+\nIIII\n")
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewDecompressReader(FormatGzip, &buf)
	if err != nil {
		t.Fatalf("NewDecompressReader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip = %q, want %q", got, want)
	}
}

func TestZstdRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCompressWriter(FormatZstd, &buf, 0)
	if err != nil {
		t.Fatalf("NewCompressWriter: %v", err)
	}
	want := []byte("@r\nACGT\n+\nIIII\n")
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewDecompressReader(FormatZstd, &buf)
	if err != nil {
		t.Fatalf("NewDecompressReader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip = %q, want %q", got, want)
	}
}

func TestRawPassesThroughUnchanged(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCompressWriter(FormatRaw, &buf, 0)
	if err != nil {
		t.Fatalf("NewCompressWriter: %v", err)
	}
	want := []byte("plain bytes")
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("raw writer transformed its input: %q", buf.Bytes())
	}
}
