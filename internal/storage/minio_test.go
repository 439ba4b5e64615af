package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresignParams(t *testing.T) {
	tests := []struct {
		name            string
		opt             PresignOptions
		wantDisposition string
		wantType        string
	}{
		{"no overrides", PresignOptions{}, "", ""},
		{"inline without name", PresignOptions{Inline: true}, "inline", ""},
		{"inline with name", PresignOptions{Inline: true, FileName: "report.pdf", ContentType: "application/pdf"}, "inline; filename=report.pdf", "application/pdf"},
		{"attachment quotes spaces", PresignOptions{FileName: "Q1 report.pdf"}, `attachment; filename="Q1 report.pdf"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := presignParams(tt.opt)
			assert.Equal(t, tt.wantDisposition, p.Get("response-content-disposition"))
			assert.Equal(t, tt.wantType, p.Get("response-content-type"))
		})
	}
}
