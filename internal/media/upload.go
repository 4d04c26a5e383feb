package media

// Upload carries one file received from the request layer. Data is the full
// byte buffer; the engine never re-reads the source stream.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
