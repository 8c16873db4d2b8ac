package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/whosonfirst/go-ioutil"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"

	"github.com/sfomuseum/go-geotag-kmz/common"
	"github.com/sfomuseum/go-geotag-kmz/feature"
	"github.com/sfomuseum/go-geotag-kmz/kmz"
	"github.com/sfomuseum/go-geotag-kmz/lookup"
	"github.com/sfomuseum/go-geotag-kmz/operations/convert"
	"github.com/sfomuseum/go-geotag-kmz/operations/gather"
	"github.com/sfomuseum/go-geotag-kmz/operations/report"
)

func main() {

	source := flag.String("source", "", "A registered gocloud.dev/blob URI where source images are read from.")
	assets_uri := flag.String("assets", "", "A registered whosonfirst/go-reader URI where icon (and logo) assets are read from.")
	icon := flag.String("icon", "Fan.png", "The filename of the orientation icon, relative to the assets reader.")
	logo := flag.String("logo", "", "The optional filename of a logo image, relative to the assets reader, displayed in placemark popups.")
	name := flag.String("name", "photos", "The name for the output archive, without its .kmz extension.")
	target := flag.String("target", "fs:///tmp", "A registered whosonfirst/go-writer URI where the archive is written.")
	dedupe := flag.String("dedupe", "", "An optional registered gocloud.dev/blob URI containing previously converted images or run reports, used to skip duplicates.")
	hash_images := flag.Bool("hash-images", false, "Compute fingerprints and perceptual hashes for each image.")
	max_dimension := flag.Uint("max-dimension", common.DefaultMaxDimension, "The bounding box, in pixels, for popup thumbnails.")
	write_geojson := flag.Bool("geojson", false, "Write a GeoJSON FeatureCollection sidecar next to the archive.")

	flag.Parse()

	ctx := context.Background()

	source_bucket, err := blob.OpenBucket(ctx, *source)

	if err != nil {
		log.Fatalf("Failed to open source bucket, %v", err)
	}

	defer source_bucket.Close()

	assets_reader, err := common.NewReader(ctx, *assets_uri)

	if err != nil {
		log.Fatalf("Failed to create assets reader, %v", err)
	}

	icon_body, err := common.ReadAsset(ctx, assets_reader, *icon)

	if err != nil {
		log.Fatalf("Failed to read icon asset, %v", err)
	}

	assets := &kmz.Assets{
		IconName: *icon,
		Icon:     icon_body,
	}

	if *logo != "" {

		logo_body, err := common.ReadAsset(ctx, assets_reader, *logo)

		if err != nil {
			log.Fatalf("Failed to read logo asset, %v", err)
		}

		assets.LogoName = *logo
		assets.Logo = logo_body
	}

	mu := new(sync.Mutex)
	batch := make([]*convert.Input, 0)

	cb := func(rsp *gather.GatherImagesResponse) error {

		mu.Lock()
		defer mu.Unlock()

		batch = append(batch, &convert.Input{
			Filename: rsp.Path,
			Body:     rsp.Body,
			MimeType: rsp.MimeType,
		})

		return nil
	}

	err = gather.GatherImages(ctx, source_bucket, cb)

	if err != nil {
		log.Fatalf("Failed to gather images, %v", err)
	}

	// Gathering fans out so restore a stable batch order before converting.

	sort.Slice(batch, func(i int, j int) bool {
		return batch[i].Filename < batch[j].Filename
	})

	opts := &convert.ConvertOptions{
		Name:         *name,
		Assets:       assets,
		MaxDimension: *max_dimension,
		HashImages:   *hash_images,
	}

	if *dedupe != "" {

		l, err := lookup.NewBlobLookerUpper(ctx, *dedupe)

		if err != nil {
			log.Fatalf("Failed to create looker upper, %v", err)
		}

		append_funcs := []lookup.AppendLookupFunc{
			lookup.FingerprintAppendLookupFunc,
			lookup.ReportAppendLookupFunc,
		}

		catalog, err := lookup.NewLookupMap(ctx, []lookup.LookerUpper{l}, append_funcs)

		if err != nil {
			log.Fatalf("Failed to build lookup map, %v", err)
		}

		opts.Catalog = catalog
	}

	archive, results, err := convert.Convert(ctx, opts, batch...)

	if err != nil {
		log.Fatalf("Failed to convert images, %v", err)
	}

	wr, err := common.NewWriter(ctx, *target)

	if err != nil {
		log.Fatalf("Failed to create writer, %v", err)
	}

	archive_fh, err := ioutil.NewReadSeekCloser(bytes.NewReader(archive))

	if err != nil {
		log.Fatalf("Failed to create archive reader, %v", err)
	}

	archive_path := fmt.Sprintf("%s.kmz", *name)

	_, err = wr.Write(ctx, archive_path, archive_fh)

	if err != nil {
		log.Fatalf("Failed to write %s, %v", archive_path, err)
	}

	if *write_geojson {

		features := make([][]byte, 0)

		for _, rsp := range results {

			if rsp.Status != convert.StatusIncluded {
				continue
			}

			f_opts := &feature.NewPhotoFeatureOptions{
				Fingerprint: rsp.Fingerprint,
				ImageHashes: rsp.ImageHashes,
			}

			f, err := feature.NewPhotoFeature(rsp.Record, f_opts)

			if err != nil {
				log.Fatalf("Failed to create feature for %s, %v", rsp.Filename, err)
			}

			features = append(features, f)
		}

		fc, err := feature.NewFeatureCollection(features...)

		if err != nil {
			log.Fatalf("Failed to create feature collection, %v", err)
		}

		fc_fh, err := ioutil.NewReadSeekCloser(bytes.NewReader(fc))

		if err != nil {
			log.Fatalf("Failed to create feature collection reader, %v", err)
		}

		fc_path := fmt.Sprintf("%s.geojson", *name)

		_, err = wr.Write(ctx, fc_path, fc_fh)

		if err != nil {
			log.Fatalf("Failed to write %s, %v", fc_path, err)
		}
	}

	body, err := report.MarshalReport(archive_path, results)

	if err != nil {
		log.Fatalf("Failed to marshal report, %v", err)
	}

	fmt.Println(string(body))
}
