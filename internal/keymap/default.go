package keymap

import "strings"

// Matrix dimensions of the combined logical keyboard.
const (
	Rows = 5
	Cols = 12
)

func rows(lines ...string) [][]string {
	out := make([][]string, len(lines))
	for i, l := range lines {
		out[i] = strings.Fields(l)
	}
	return out
}

const blank = "trans trans trans trans trans trans trans trans trans trans trans trans"

// Default returns the built-in five-layer keymap.
func Default() File {
	return File{
		HoldTaps: map[string]HoldTapDef{
			"L2_ENTER": {Timeout: 200, Config: "hold_on_other_key_press", Hold: "l(2)", Tap: "k(Enter)"},
			"CTRL_TAB": {Timeout: 200, Config: "default", Hold: "k(LCtrl)", Tap: "k(Tab)"},
			"L1_SP":    {Timeout: 200, Config: "hold_on_other_key_press", Hold: "l(1)", Tap: "k(Space)"},
			"SFT_BSP":  {Timeout: 200, Config: "default", Hold: "k(RShift)", Tap: "k(BSpace)"},
		},
		Layers: []LayerDef{
			{Name: "alphas", Rows: rows(
				blank,
				"trans k(Q)      k(W)   k(E)         k(R)         k(T)     k(Y) k(U)         k(I)        k(O)      k(P)      trans",
				"trans k(A)      k(S)   k(D)         k(F)         k(G)     k(H) k(J)         k(K)        k(L)      k(Escape) trans",
				"trans k(RShift) k(Z)   k(X)         k(C)         k(V)     k(B) k(N)         k(M)        k(Delete) l(4)      trans",
				"trans trans     k(LAlt) ht(CTRL_TAB) ht(L1_SP)   k(LGui)  l(3) ht(L2_ENTER) ht(SFT_BSP) k(RAlt)   trans     trans",
			)},
			{Name: "navigation", Rows: rows(
				blank,
				"trans k(No) k(No)    s(LBracket) s(RBracket) k(No)  k(PgUp)   c(Left)   k(Up)     c(Right)  k(PScreen) trans",
				"trans k(No) s(Comma) s(Kb9)      s(Kb0)      s(Dot) k(Home)   k(Left)   k(Down)   k(Right)  k(End)     trans",
				"trans trans k(No)    k(LBracket) k(RBracket) k(No)  k(PgDown) c(PgUp)   c(PgDown) k(Insert) trans      trans",
				blank,
			)},
			{Name: "symbols", Rows: rows(
				blank,
				"trans k(No) s(Grave)  s(Equal) s(Minus) k(Bslash) s(Quote) k(Comma) s(Slash) s(SColon) k(No) trans",
				"trans k(No) k(Grave)  k(Equal) k(Minus) k(Slash)  k(Quote) k(Dot)   s(Kb1)   k(SColon) k(No) trans",
				"trans trans s(Bslash) s(Kb7)   s(Kb8)   s(Kb6)    s(Kb2)   s(Kb3)   s(Kb4)   s(Kb5)    trans trans",
				blank,
			)},
			{Name: "numbers", Rows: rows(
				blank,
				"trans k(No) k(F1) k(F2)  k(F3)  k(F4)  k(Kb0) k(Kb1) k(Kb2) k(Kb3) k(No) trans",
				"trans k(No) k(F5) k(F6)  k(F7)  k(F8)  k(Dot) k(Kb4) k(Kb5) k(Kb6) k(No) trans",
				"trans trans k(F9) k(F10) k(F11) k(F12) k(No)  k(Kb7) k(Kb8) k(Kb9) trans trans",
				blank,
			)},
			{Name: "plain thumbs", Rows: rows(
				blank,
				blank,
				blank,
				blank,
				"trans trans trans k(Tab) k(Space) trans trans k(Enter) k(BSpace) trans trans trans",
			)},
		},
	}
}
