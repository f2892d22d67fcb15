package flatten

import "crypto/rand"

// Identity tokens are 16-character Crockford Base32 strings carrying 80
// random bits. There is no timestamp component: tokens must not encode
// creation order. Uniqueness is probabilistic, not guaranteed.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewToken returns a fresh random identity token.
func NewToken() string {
	var b [10]byte
	rand.Read(b[:])
	return encodeToken(b)
}

func encodeToken(b [10]byte) string {
	// Crockford Base32 encoding of 80 bits = 16 characters.
	var out [16]byte
	out[0] = crockford[(b[0]&248)>>3]
	out[1] = crockford[((b[0]&7)<<2)|((b[1]&192)>>6)]
	out[2] = crockford[(b[1]&62)>>1]
	out[3] = crockford[((b[1]&1)<<4)|((b[2]&240)>>4)]
	out[4] = crockford[((b[2]&15)<<1)|((b[3]&128)>>7)]
	out[5] = crockford[(b[3]&124)>>2]
	out[6] = crockford[((b[3]&3)<<3)|((b[4]&224)>>5)]
	out[7] = crockford[b[4]&31]
	out[8] = crockford[(b[5]&248)>>3]
	out[9] = crockford[((b[5]&7)<<2)|((b[6]&192)>>6)]
	out[10] = crockford[(b[6]&62)>>1]
	out[11] = crockford[((b[6]&1)<<4)|((b[7]&240)>>4)]
	out[12] = crockford[((b[7]&15)<<1)|((b[8]&128)>>7)]
	out[13] = crockford[(b[8]&124)>>2]
	out[14] = crockford[((b[8]&3)<<3)|((b[9]&224)>>5)]
	out[15] = crockford[b[9]&31]
	return string(out[:])
}
