package contracts

import "errors"

// ⭐ SSOT: 공통 에러 정의는 여기서만
var (
	// ErrBenchmarkMissing ranking cannot proceed without the reference ticker
	ErrBenchmarkMissing = errors.New("benchmark ticker missing from archive")

	// ErrEmptyArchive no ticker carries any candle
	ErrEmptyArchive = errors.New("price archive is empty")

	// ErrInvalidCandle candle failed construction checks
	ErrInvalidCandle = errors.New("invalid candle")

	// ErrUnorderedSeries candle timestamps not strictly increasing
	ErrUnorderedSeries = errors.New("candle series not strictly increasing")

	// ErrNotFound record absent from a store or cache
	ErrNotFound = errors.New("not found")

	// ErrUnknownFundamentals lookup exhausted its attempts
	ErrUnknownFundamentals = errors.New("fundamentals unknown")
)
