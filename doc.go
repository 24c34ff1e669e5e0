// Package parcel packs files into archives and unpacks them again.
//
// Supported formats are tar, zip, jar, gzip, tar+gzip and the legacy LZW
// ".Z" format. The latter has no native codec and is handled by running the
// system compress and uncompress tools.
//
// # Basic Usage
//
// Create a client and pack a directory:
//
//	client, err := parcel.NewClient()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Pack ./build into ./build.tar.gz
//	target, err := client.Pack(ctx, parcel.PackRequest{
//	    Source: "./build",
//	    Format: parcel.FormatTarGzip,
//	})
//
//	// List entries without extracting
//	names, err := client.Preview(ctx, target, parcel.FormatUnspecified)
//
//	// Extract into ./out
//	paths, err := client.Unpack(ctx, parcel.UnpackRequest{
//	    Source: target,
//	    Target: "./out",
//	})
//
// # Entry Names
//
// By default a file is named relative to the parent of the base directory,
// so packing ./build yields entries such as "build/bin/app". PackOptions
// changes this: PreserveAbsolutePath stores absolute paths,
// IgnoreParentsDirectory drops the base directory's own name, and
// IgnoreTreeStructure stores base names only.
//
// # Format Detection
//
// When a request leaves Format unspecified, Pack infers it from the target
// name and Unpack inspects the source's leading bytes, looking inside gzip
// streams for a tar header, before falling back to the file name.
//
// # Path Safety
//
// Unpack never writes outside the target directory. An entry such as
// "../../etc/passwd" is extracted as "passwd" directly inside the target and
// a warning is logged; the rest of the archive is still extracted.
package parcel
