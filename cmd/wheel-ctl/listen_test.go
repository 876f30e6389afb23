package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		readings bool
		want     string
		wantOK   bool
	}{
		{
			name:   "press",
			msg:    `{"type":"event","session":"a","data":{"event":{"type":"press","zone":"up"},"position":0}}`,
			want:   "[EVENT] name: press, val: up",
			wantOK: true,
		},
		{
			name:   "dial",
			msg:    `{"type":"event","data":{"event":{"type":"dial","delta":-1},"position":-4}}`,
			want:   "[EVENT] name: dial, val: -1 (position -4)",
			wantOK: true,
		},
		{
			name:   "status",
			msg:    `{"type":"status_init","data":{"source":"mock","touched":false,"position":2}}`,
			want:   "[STATUS] source=mock touched=false position=2",
			wantOK: true,
		},
		{
			name:   "reading hidden",
			msg:    `{"type":"reading","data":{"reading":{"l":1}}}`,
			wantOK: false,
		},
		{
			name:     "reading shown",
			msg:      `{"type":"reading","data":{"reading":{"l":1.5,"r":1.5,"theta":1.5707963267948966,"phi":0},"locked":true}}`,
			readings: true,
			want:     "[READING] l=1.50 r=1.50 theta=90° phi=0° locked=true",
			wantOK:   true,
		},
		{
			name:   "not json",
			msg:    `hello`,
			want:   "[TEXT] hello",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := formatMessage([]byte(tt.msg), tt.readings)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (line %q)", ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrinter_OneLinePerMessage(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf}
	p.handle([]byte(`{"type":"event","data":{"event":{"type":"long","zone":"center"},"position":0}}`))
	p.handle([]byte(`{"type":"reading","data":{}}`))

	if got := strings.TrimSpace(buf.String()); got != "[EVENT] name: long, val: center" {
		t.Fatalf("output = %q", got)
	}
}
