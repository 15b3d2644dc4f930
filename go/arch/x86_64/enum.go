package x86_64

// register numbering follows unicorn's x86 enums so the same values work on every backend
const (
	RAX = 35
	RBP = 36
	RBX = 37
	RCX = 38
	RDI = 39
	RDX = 40
	RIP = 41
	RSI = 43
	RSP = 44

	R8  = 106
	R9  = 107
	R10 = 108
	R11 = 109
	R12 = 110
	R13 = 111
	R14 = 112
	R15 = 113
)
