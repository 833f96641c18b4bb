//go:build !govips || !cgo

package transcode

// Backend names the compiled-in transcoder.
const Backend = "native"

func Startup() error {
	return nil
}

func Shutdown() {}

func newTranscoder(_ Options) (Transcoder, error) {
	return nativeTranscoder{}, nil
}
