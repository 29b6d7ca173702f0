package app

// FakeClock is a settable time source shared with the external test package.
type FakeClock = fakeNow

var NewFakeClock = newFakeNow
