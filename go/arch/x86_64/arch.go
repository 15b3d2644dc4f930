package x86_64

import (
	"github.com/lunixbochs/bootcorn/go/models"
)

var Arch = &models.Arch{
	Name: "x86_64",
	Bits: 64,
	SP:   RSP,
	PC:   RIP,
	Regs: map[int]string{
		RAX: "rax",
		RBX: "rbx",
		RCX: "rcx",
		RDX: "rdx",
		RSI: "rsi",
		RDI: "rdi",
		RBP: "rbp",
		RSP: "rsp",
		RIP: "rip",
		R8:  "r8",
		R9:  "r9",
		R10: "r10",
		R11: "r11",
		R12: "r12",
		R13: "r13",
		R14: "r14",
		R15: "r15",
	},
}

// first integer argument registers of the SysV calling convention, as seen by the entry stub
var Params = []int{RDI, RSI, RDX, RCX, R8, R9}
