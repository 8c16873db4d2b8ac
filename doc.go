package geotagkmz

// This package defines common methods and operations for converting batches of geotagged (JPEG, PNG) images in to KMZ archives where each image is represented by a located, oriented placemark with a popup thumbnail. Common operations include: Gathering images, converting images and reporting per-image outcomes.
