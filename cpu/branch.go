package cpu

// Taken evaluates a branch condition over the zero and sign flags.
// Conditions that depend on other flags, or on cx, are not evaluated;
// they report evaluated=false and are never taken.
func Taken(op Op, zero bool, sign bool) (taken bool, evaluated bool) {
	evaluated = true

	switch op {
	case OP_JE:
		taken = zero
	case OP_JL, OP_JS, OP_JNBE:
		taken = sign
	case OP_JLE, OP_JNB:
		taken = sign || zero
	case OP_JNLE, OP_JNS, OP_JB:
		taken = !sign
	case OP_JNL, OP_JBE:
		taken = !sign || zero
	case OP_JNE:
		taken = !zero
	default:
		evaluated = false
	}

	return
}
