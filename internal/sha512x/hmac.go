package sha512x

// HMAC computes HMAC-SHA512 of data under key.
//
// Keys longer than the block size are hashed first; shorter keys are
// zero-padded to the block size, per RFC 2104.
func HMAC(key, data []byte) [Size]byte {
	if len(key) > BlockSize {
		sum := Sum(key)
		key = sum[:]
	}

	var ipad, opad [BlockSize]byte
	copy(ipad[:], key)
	copy(opad[:], key)
	for i := 0; i < BlockSize; i++ {
		ipad[i] ^= 0x36
		opad[i] ^= 0x5c
	}

	inner := Sum(append(ipad[:], data...))
	return Sum(append(opad[:], inner[:]...))
}
