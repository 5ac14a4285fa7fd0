// package formatter renders exported tracks for DJ software.
//
// [ToCamelot] maps a pitch class and mode to Camelot wheel notation, [EncodeCSV] writes the
// nine-column CSV and [ExportFilename] derives a filesystem-safe file name from a playlist name.
package formatter
