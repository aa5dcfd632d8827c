package main

import "fmt"

type rgb struct{ r, g, b int }

var (
	cLime = rgb{0xD7, 0xFF, 0x00}
	cDim  = rgb{0x9F, 0xB8, 0x00}
	cText = rgb{0xEE, 0xEE, 0xEE}
	cSub  = rgb{0x88, 0x88, 0x88}
	cErr  = rgb{0xFF, 0x4D, 0x4D}
	cOK   = rgb{0x6F, 0xD6, 0x6F}
	cWarn = rgb{0xFF, 0xC1, 0x4D}
)

func ansiFG(c rgb) string { return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", c.r, c.g, c.b) }
func ansiBG(c rgb) string { return fmt.Sprintf("\x1b[48;2;%d;%d;%dm", c.r, c.g, c.b) }

const ansiReset = "\x1b[0m"

func colored(c rgb, s string) string { return ansiFG(c) + s + ansiReset }

var logoVeil = []string{
	" _    __ ____  ____ __ ",
	"| |  / // __/ /  _// /   ",
	"| | / // _/   / / / /    ",
	"| |/ // /__ _/ /_/ /___  ",
	"|___//____//___//_____/  ",
}

const logoTag = "tunnel endpoint provisioner"
