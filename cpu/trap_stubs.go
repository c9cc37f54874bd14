package cpu

// One bodiless stub per installed vector; each pushes (vector,
// error_code_or_0), calls commonTrapHandler, and iretd's back out. Bodies
// live in trap_386.s. Vector 15 is Intel-reserved and has no stub.

//go:noescape
func excStub0()

//go:noescape
func excStub1()

//go:noescape
func excStub2()

//go:noescape
func excStub3()

//go:noescape
func excStub4()

//go:noescape
func excStub5()

//go:noescape
func excStub6()

//go:noescape
func excStub7()

//go:noescape
func excStub8()

//go:noescape
func excStub9()

//go:noescape
func excStub10()

//go:noescape
func excStub11()

//go:noescape
func excStub12()

//go:noescape
func excStub13()

//go:noescape
func excStub14()

//go:noescape
func excStub16()

//go:noescape
func excStub17()

//go:noescape
func excStub18()

//go:noescape
func excStub19()

//go:noescape
func excStub20()

//go:noescape
func excStub21()

//go:noescape
func irqStub0()

//go:noescape
func irqStub1()

//go:noescape
func irqStub2()

//go:noescape
func irqStub3()

//go:noescape
func irqStub4()

//go:noescape
func irqStub5()

//go:noescape
func irqStub6()

//go:noescape
func irqStub7()

//go:noescape
func irqStub8()

//go:noescape
func irqStub9()

//go:noescape
func irqStub10()

//go:noescape
func irqStub11()

//go:noescape
func irqStub12()

//go:noescape
func irqStub13()

//go:noescape
func irqStub14()

//go:noescape
func irqStub15()

var excStubs = [22]func(){
	0: excStub0, 1: excStub1, 2: excStub2, 3: excStub3, 4: excStub4,
	5: excStub5, 6: excStub6, 7: excStub7, 8: excStub8, 9: excStub9,
	10: excStub10, 11: excStub11, 12: excStub12, 13: excStub13, 14: excStub14,
	16: excStub16, 17: excStub17, 18: excStub18, 19: excStub19, 20: excStub20,
	21: excStub21,
}

var irqStubs = [16]func(){
	irqStub0, irqStub1, irqStub2, irqStub3, irqStub4, irqStub5, irqStub6,
	irqStub7, irqStub8, irqStub9, irqStub10, irqStub11, irqStub12, irqStub13,
	irqStub14, irqStub15,
}
