package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		`file<>:"/\|?*name`: "filename",
		"file@#$%^&name":    "filename",
		"my file name":      "my_file_name",
		"my   file   name":  "my_file_name",
		"   myfile   ":      "myfile",
		"__myfile__.":       "myfile",
		"file_name-1.0.txt": "file_name-1.0.txt",
		"für élise.txt":     "fur_elise.txt",
		"":                  "",
		"BTC-USD":           "BTC-USD",
		"S&P 500":           "SP_500",
		"  test  file  ":    "test_file",
		"...hidden...":      "hidden",
		"file___name":       "file_name",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFilename(in), "SafeFilename(%q)", in)
	}
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "AAPL", fileStem("AAPL"))
	assert.Regexp(t, `^GSPC-[0-9a-f]{8}$`, fileStem("^GSPC"))
	assert.Regexp(t, `^[0-9a-f]{8}$`, fileStem("^^^"))
}
