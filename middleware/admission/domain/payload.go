package domain

// CheckPayloadSize rejeita corpos maiores que max bytes.
// length == max ainda é aceito.
func CheckPayloadSize(length, max int64) error {
	if length > max {
		return PayloadTooLarge(max)
	}
	return nil
}
