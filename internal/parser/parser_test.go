package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinPrompt/internal/domain/apperr"
)

func TestPrice(t *testing.T) {
	v, err := Price("Looking at the trend...\n###!PRICE!### 101.50\n")
	require.NoError(t, err)
	assert.Equal(t, "101.5", v.String())

	v, err = Price("###!PRICE!###187")
	require.NoError(t, err)
	assert.Equal(t, "187", v.String())
}

func TestPriceMalformed(t *testing.T) {
	for _, reply := range []string{"", "The price will be 101.50", "###!PRICE!### about 100", "###!PRICE!### -3"} {
		_, err := Price(reply)
		assert.True(t, errors.Is(err, apperr.ErrMalformedReply), reply)
	}
}

func TestTicker(t *testing.T) {
	v, err := Ticker("###!TICKER!### AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", v)

	v, err = Ticker("###!TICKER!### GOOGLE")
	require.NoError(t, err)
	assert.Equal(t, "GOOGL", v)

	_, err = Ticker("###!TICKER!### aapl")
	assert.Equal(t, apperr.KindMalformedReply, apperr.KindOf(err))
}

func TestParseSentiment(t *testing.T) {
	s, err := ParseSentiment("  ###!SENTIMENT!### 7 | high | multiple upbeat metrics\n")
	require.NoError(t, err)
	assert.Equal(t, Sentiment{Score: 7, Confidence: "High", Reason: "multiple upbeat metrics"}, s)

	s, err = ParseSentiment("###!SENTIMENT!### -2 | LOW | single source")
	require.NoError(t, err)
	assert.Equal(t, -2, s.Score)
	assert.Equal(t, "Low", s.Confidence)
}

func TestParseSentimentMalformed(t *testing.T) {
	cases := map[string]string{
		"no marker":        "7 | High | reason",
		"leading text":     "Sure! ###!SENTIMENT!### 7 | High | reason",
		"two fields":       "###!SENTIMENT!### 7 | High",
		"four fields":      "###!SENTIMENT!### 7 | High | a | b",
		"float score":      "###!SENTIMENT!### 7.5 | High | reason",
		"bad confidence":   "###!SENTIMENT!### 7 | Certain | reason",
		"empty confidence": "###!SENTIMENT!### 7 |  | reason",
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := ParseSentiment(reply)
			assert.True(t, errors.Is(err, apperr.ErrMalformedReply))
			assert.Equal(t, Sentiment{}, s)
		})
	}
}

func TestParseEarnings(t *testing.T) {
	e, err := ParseEarnings("Reasoning...\n###EARNINGS### 52480000 | 0.88")
	require.NoError(t, err)
	assert.Equal(t, int64(52480000), e.Revenue)
	assert.Equal(t, "0.88", e.EPS.String())

	_, err = ParseEarnings("###EARNINGS### 52.4M | 0.88")
	assert.True(t, errors.Is(err, apperr.ErrMalformedReply))

	_, err = ParseEarnings("###EARNINGS### 100 | 1.2.3")
	assert.True(t, errors.Is(err, apperr.ErrMalformedReply))
}

func TestParsersArePure(t *testing.T) {
	reply := "###!PRICE!### 99.9"
	a, errA := Price(reply)
	b, errB := Price(reply)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.True(t, a.Equal(b))
}
