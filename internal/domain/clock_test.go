package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestTodayAndRequestToken(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2020, 4, 7, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600)))
	SetClock(fc)
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, "2020-04-08", Today())

	first := RequestToken()
	fc.Advance(time.Second)
	assert.Equal(t, first+1000, RequestToken())
}
