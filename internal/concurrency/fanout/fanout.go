package fanout

// FanOut distributes values from in across n output channels, round-robin.
// Every output channel is closed once in is closed and drained.
func FanOut[T any](in <-chan T, n int) []chan T {
	if n <= 0 {
		n = 1
	}
	outs := make([]chan T, n)
	for i := 0; i < n; i++ {
		outs[i] = make(chan T)
	}

	go func() {
		defer func() {
			for _, ch := range outs {
				close(ch)
			}
		}()

		i := 0
		for v := range in {
			outs[i%n] <- v
			i++
		}
	}()

	return outs
}
