package viewer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "ただ今", TimeAgo(fetched, fetched.Add(59*time.Second)))
	assert.Equal(t, "1分前", TimeAgo(fetched, fetched.Add(time.Minute)))
	assert.Equal(t, "12分前", TimeAgo(fetched, fetched.Add(12*time.Minute+30*time.Second)))
	assert.Equal(t, "", TimeAgo(time.Time{}, fetched))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "115%", FormatPercent(1.15))
	assert.Equal(t, "90%", FormatPercent(0.9))
	assert.Equal(t, "0%", FormatPercent(0))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatPrice(1234567))
	assert.Equal(t, "980", FormatPrice(980))
}
