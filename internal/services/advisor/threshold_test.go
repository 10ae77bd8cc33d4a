package advisor

import (
	"errors"
	"testing"
	"time"

	"WattCast/internal/domain/models"
)

type latest struct {
	r  models.Reading
	ok bool
}

func (l latest) Latest() (models.Reading, bool) { return l.r, l.ok }

func TestThreshold_Advise(t *testing.T) {
	a := NewThreshold(DefaultThreshold)
	cases := []struct {
		value float64
		want  models.Recommendation
	}{
		{1.6, models.RecommendReduce},
		{1.5, models.RecommendOptimal},
		{0.2, models.RecommendOptimal},
		{0, models.RecommendOptimal},
	}
	for _, tc := range cases {
		if got := a.Advise(tc.value); got != tc.want {
			t.Fatalf("advise(%v)=%s want %s", tc.value, got, tc.want)
		}
	}
}

func TestThreshold_NonPositiveFallsBack(t *testing.T) {
	if NewThreshold(0).Limit() != DefaultThreshold || NewThreshold(-1).Limit() != DefaultThreshold {
		t.Fatalf("expected default threshold")
	}
	if NewThreshold(3).Advise(2.5) != models.RecommendOptimal {
		t.Fatalf("custom threshold ignored")
	}
}

func TestThreshold_AdviseLatest(t *testing.T) {
	a := NewThreshold(DefaultThreshold)

	if _, err := a.AdviseLatest(latest{}); !errors.Is(err, models.ErrEmptyHistory) {
		t.Fatalf("err=%v want ErrEmptyHistory", err)
	}
	if _, err := a.AdviseLatest(nil); !errors.Is(err, models.ErrEmptyHistory) {
		t.Fatalf("nil source: err=%v", err)
	}

	rec, err := a.AdviseLatest(latest{r: models.Reading{Timestamp: time.Now(), Value: 1.9}, ok: true})
	if err != nil || rec != models.RecommendReduce {
		t.Fatalf("rec=%s err=%v", rec, err)
	}
}
