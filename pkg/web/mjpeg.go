package web

import "io"

// MJPEGBoundary separates parts of the stream.
const MJPEGBoundary = "frame"

// MJPEGContentType is the response type of the stream.
const MJPEGContentType = "multipart/x-mixed-replace; boundary=" + MJPEGBoundary

// WriteMJPEGPart writes one JPEG as a part of the multipart stream.
func WriteMJPEGPart(w io.Writer, jpeg []byte) error {
	header := "--" + MJPEGBoundary + "\r\nContent-Type: image/jpeg\r\n\r\n"
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n\r\n")
	return err
}
