package city

// Budget is the player treasury seen by the tools. Callers check Available before Spend.
type Budget interface {
	Available() int
	Spend(amount int)
}

// Chooser supplies the park tool's four-way random pick. *math/rand.Rand satisfies it.
type Chooser interface {
	Intn(n int) int
}

// Wallet is the in-memory Budget used by the world and tests.
type Wallet struct {
	amount int
}

func NewWallet(amount int) *Wallet { return &Wallet{amount: amount} }

func (w *Wallet) Available() int   { return w.amount }
func (w *Wallet) Spend(amount int) { w.amount -= amount }
func (w *Wallet) Set(amount int)   { w.amount = amount }

type fixedChooser int

func (f fixedChooser) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(f) % n
}
