/*Package interval implements the coordinate types shared by the track
  packages: GenomicInterval, an inclusive [start, end] range on one
  chromosome, and Union, a sorted interval-union used to record which
  positions of a buffer have received data.

  All bounds arithmetic (intersection, clamping) is expressed through
  GenomicInterval so that it is written exactly once.  Coordinates are
  plain ints; no 0/1-based shift is ever applied by this package.
*/
package interval
