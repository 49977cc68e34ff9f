package mesh

// Ownership tags who is responsible for freeing a buffer.
type Ownership uint8

const (
	// Absent marks a buffer that does not exist (the NULL of the C ABI).
	Absent Ownership = iota
	// Borrowed buffers belong to the caller and are never freed here.
	Borrowed
	// Owned buffers were allocated by this layer and must be released once.
	Owned
)

func (o Ownership) String() string {
	switch o {
	case Absent:
		return "absent"
	case Borrowed:
		return "borrowed"
	case Owned:
		return "owned"
	default:
		return "unknown"
	}
}

// Element is the set of scalar types a mesh buffer can hold.
type Element interface {
	~float32 | ~int32
}

// Buffer is a flat scalar slice tagged with its ownership.
// The zero value is an absent buffer.
type Buffer[T Element] struct {
	data []T
	own  Ownership
}

// BorrowBuffer wraps caller memory. A nil slice yields an absent buffer.
func BorrowBuffer[T Element](data []T) Buffer[T] {
	if data == nil {
		return Buffer[T]{}
	}
	return Buffer[T]{data: data, own: Borrowed}
}

func ownBuffer[T Element](data []T) Buffer[T] {
	if data == nil {
		return Buffer[T]{}
	}
	return Buffer[T]{data: data, own: Owned}
}

// Data returns the underlying slice. Borrowed data must be treated as read-only.
func (b Buffer[T]) Data() []T { return b.data }

// Len returns the number of scalars in the buffer.
func (b Buffer[T]) Len() int { return len(b.data) }

// Ownership returns the ownership tag.
func (b Buffer[T]) Ownership() Ownership { return b.own }

// IsAbsent reports whether the buffer does not exist.
func (b Buffer[T]) IsAbsent() bool { return b.own == Absent }
