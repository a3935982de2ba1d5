package application

import "sync"

// subscriber reenvía las actualizaciones en orden. La cola no tiene límite para que
// un lector lento nunca bloquee al worker del repositorio.
type subscriber struct {
	out    chan Update
	notify chan struct{}

	mu       sync.Mutex
	queue    []Update
	draining bool

	done     chan struct{}
	stopOnce sync.Once
}

func newSubscriber(buffer int) *subscriber {
	if buffer < 0 {
		buffer = 0
	}
	s := &subscriber{
		out:    make(chan Update, buffer),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.forward()
	return s
}

// enqueue nunca bloquea.
func (s *subscriber) enqueue(u Update) {
	s.mu.Lock()
	s.queue = append(s.queue, u)
	s.mu.Unlock()
	s.wake()
}

// drain entrega lo que quede en cola y después cierra el canal.
func (s *subscriber) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.wake()
}

// stop cierra el canal sin entregar lo pendiente.
func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *subscriber) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) forward() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			draining := s.draining
			s.mu.Unlock()
			if draining {
				return
			}
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		next := s.queue[0]
		s.queue[0] = Update{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.done:
			return
		}
	}
}
