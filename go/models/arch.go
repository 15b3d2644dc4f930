package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lunixbochs/fvbommel-util/sortorder"
)

type Reg struct {
	Enum int
	Name string
}

type RegVal struct {
	Reg
	Val uint64
}

func (r RegVal) String() string {
	return fmt.Sprintf("%s=%#x", r.Name, r.Val)
}

type regList []Reg

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i].Name, r[j].Name) }

type regMap map[int]string

func (r regMap) Items() regList {
	ret := make(regList, 0, len(r))
	for e, n := range r {
		ret = append(ret, Reg{e, n})
	}
	return ret
}

type RegReader interface {
	RegRead(reg int) (uint64, error)
}

type Arch struct {
	Name string
	Bits int
	SP   int
	PC   int
	Regs regMap

	// sorted for RegDump
	regList regList
}

func (a *Arch) sorted() regList {
	if a.regList == nil {
		rl := a.Regs.Items()
		sort.Sort(rl)
		a.regList = rl
	}
	return a.regList
}

// RegEnums lists every general purpose register, in dump order.
func (a *Arch) RegEnums() []int {
	rl := a.sorted()
	ret := make([]int, len(rl))
	for i, r := range rl {
		ret[i] = r.Enum
	}
	return ret
}

func (a *Arch) RegDump(u RegReader) ([]RegVal, error) {
	rl := a.sorted()
	ret := make([]RegVal, len(rl))
	for i, r := range rl {
		val, err := u.RegRead(r.Enum)
		if err != nil {
			return nil, err
		}
		ret[i] = RegVal{r, val}
	}
	return ret, nil
}

// RegDumpString renders the register file four per line.
func (a *Arch) RegDumpString(u RegReader) (string, error) {
	regs, err := a.RegDump(u)
	if err != nil {
		return "", err
	}
	var lines []string
	for i := 0; i < len(regs); i += 4 {
		end := i + 4
		if end > len(regs) {
			end = len(regs)
		}
		cols := make([]string, 0, 4)
		for _, r := range regs[i:end] {
			cols = append(cols, fmt.Sprintf("%3s 0x%016x", r.Name, r.Val))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}
	return strings.Join(lines, "\n"), nil
}
