package actuator

import "strconv"

// Encode renders a steering command in the board's line protocol:
// ASCII decimal followed by a newline.
func Encode(command int) []byte {
	b := strconv.AppendInt(make([]byte, 0, 5), int64(command), 10)
	return append(b, '\n')
}
