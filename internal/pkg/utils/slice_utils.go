package utils

// Chunk splits items into contiguous batches of at most size elements,
// preserving order. The batches share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items) // Если размер батча некорректен, обрабатываем все как один батч
	}
	if len(items) == 0 {
		return [][]T{}
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end:end])
	}
	return batches
}
