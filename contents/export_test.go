package contents

func (l *Listing) Loading() bool {
	return l.loading()
}
